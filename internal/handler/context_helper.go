package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// pageParams reads page and limit query parameters. Invalid values fall back to zero
// so that the service applies its defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
