package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type failingConflictFinder struct{}

func (failingConflictFinder) FindSlotConflict(ctx context.Context, exec sqlx.ExtContext, dim models.ConflictType, resourceID, slotID, quarterID, excludeID string) (*models.ClassScheduleDetail, error) {
	return nil, errors.New("connection reset")
}

func TestConflictCheckerUnknownResourceName(t *testing.T) {
	f := newSchedulingFixture(t)
	f.mustCreate(t, algebraRequest())
	delete(f.db.classrooms, "C1")

	conflicts, err := f.checker.Check(context.Background(), nil, candidateOf(algebraRequest()), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 3)
	assert.Equal(t, "Ada Lovelace", conflicts[0].ResourceName)
	assert.Equal(t, "Unknown", conflicts[1].ResourceName)
	assert.Equal(t, "08:00-10:00", conflicts[1].TimeBlockLabel)
}

func TestConflictCheckerExcludesGivenSchedule(t *testing.T) {
	f := newSchedulingFixture(t)
	created := f.mustCreate(t, algebraRequest())

	conflicts, err := f.checker.Check(context.Background(), nil, candidateOf(algebraRequest()), created.Schedule.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestConflictCheckerStorageFailure(t *testing.T) {
	checker := NewConflictChecker(failingConflictFinder{}, nil, nil, nil, nil)

	_, err := checker.Check(context.Background(), nil, candidateOf(algebraRequest()), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
