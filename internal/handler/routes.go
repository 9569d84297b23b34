package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// Handlers groups the endpoint handlers mounted under the API prefix.
type Handlers struct {
	Schedules  *ClassScheduleHandler
	Workload   *WorkloadHandler
	TimeSlots  *TimeSlotHandler
	Quarters   *QuarterHandler
	Groups     *StudentGroupHandler
	Timetables *TimetableHandler
}

// RegisterRoutes mounts the API. The write chain guards every mutating route.
func RegisterRoutes(api gin.IRouter, h Handlers, write []gin.HandlerFunc) {
	guarded := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(write)+1)
		chain = append(chain, write...)
		return append(chain, handler)
	}

	schedules := api.Group("/schedules")
	schedules.POST("/validate", h.Schedules.Validate)
	schedules.GET("", h.Schedules.List)
	schedules.GET("/:id", h.Schedules.Get)
	schedules.POST("", guarded(h.Schedules.Create)...)
	schedules.PUT("/:id", guarded(h.Schedules.Update)...)
	schedules.DELETE("/:id", guarded(h.Schedules.Delete)...)

	api.GET("/instructors/:id/workload", h.Workload.Summary)
	api.GET("/instructors/:id/schedules", h.Schedules.ListByResource(models.ConflictInstructor))
	api.GET("/classrooms/:id/schedules", h.Schedules.ListByResource(models.ConflictClassroom))
	api.GET("/groups/:id/schedules", h.Schedules.ListByResource(models.ConflictGroup))
	api.POST("/groups/:id/disable", guarded(h.Groups.Disable)...)

	api.GET("/timetables/export", h.Timetables.Export)

	api.GET("/days", h.TimeSlots.ListDays)
	api.GET("/time-blocks", h.TimeSlots.ListTimeBlocks)
	api.POST("/time-blocks", guarded(h.TimeSlots.CreateTimeBlock)...)
	api.PUT("/time-blocks/:id", guarded(h.TimeSlots.UpdateTimeBlock)...)
	api.DELETE("/time-blocks/:id", guarded(h.TimeSlots.DeleteTimeBlock)...)
	api.GET("/slots", h.TimeSlots.ListSlots)
	api.POST("/slots", guarded(h.TimeSlots.CreateSlot)...)
	api.DELETE("/slots/:id", guarded(h.TimeSlots.DeleteSlot)...)

	quarters := api.Group("/quarters")
	quarters.GET("", h.Quarters.List)
	quarters.GET("/current", h.Quarters.Current)
	quarters.GET("/:id", h.Quarters.Get)
	quarters.POST("", guarded(h.Quarters.Create)...)
	quarters.PUT("/:id", guarded(h.Quarters.Update)...)
	quarters.DELETE("/:id", guarded(h.Quarters.Delete)...)
}

// RegisterOps mounts the operational endpoints outside the API prefix.
func RegisterOps(r gin.IRouter, h *MetricsHandler) {
	r.GET("/metrics", h.Prometheus)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}
