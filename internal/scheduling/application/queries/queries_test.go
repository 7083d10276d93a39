package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// mockPlacementRepo is a mock implementation of domain.PlacementRepository.
type mockPlacementRepo struct {
	mock.Mock
}

func (m *mockPlacementRepo) SaveRun(ctx context.Context, run domain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockPlacementRepo) LatestRun(ctx context.Context) (*domain.Run, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *mockPlacementRepo) ListPlacements(ctx context.Context, from, to time.Time) ([]domain.Placement, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Placement), args.Error(1)
}

func (m *mockPlacementRepo) ListPinned(ctx context.Context) ([]domain.Placement, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Placement), args.Error(1)
}

func day(d, hh, mm int) time.Time {
	return time.Date(2026, time.October, d, hh, mm, 0, 0, time.UTC)
}

func TestGetScheduleHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to one day", func(t *testing.T) {
		repo := new(mockPlacementRepo)
		repo.On("ListPlacements", ctx, day(19, 0, 0), day(20, 0, 0)).Return([]domain.Placement{
			{TaskID: "a", TimeMapID: "work", Start: day(19, 9, 0), End: day(19, 10, 0)},
			{TaskID: "b", TimeMapID: "work", Start: day(19, 10, 0), End: day(19, 10, 30), Pinned: true},
		}, nil)

		dto, err := NewGetScheduleHandler(repo).Handle(ctx, GetScheduleQuery{From: day(19, 0, 0)})
		require.NoError(t, err)

		require.Len(t, dto.Placements, 2)
		assert.Equal(t, 90, dto.TotalScheduledMins)
		assert.Equal(t, 1, dto.PinnedCount)
		assert.Equal(t, 30, dto.Placements[1].DurationMin)
		repo.AssertExpectations(t)
	})

	t.Run("rejects empty window", func(t *testing.T) {
		_, err := NewGetScheduleHandler(new(mockPlacementRepo)).Handle(ctx, GetScheduleQuery{From: day(19, 0, 0), To: day(19, 0, 0)})
		assert.ErrorIs(t, err, domain.ErrInvalidInterval)
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := new(mockPlacementRepo)
		repo.On("ListPlacements", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := NewGetScheduleHandler(repo).Handle(ctx, GetScheduleQuery{From: day(19, 0, 0)})
		assert.Error(t, err)
	})
}

func TestGetLatestRunHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("no run yet", func(t *testing.T) {
		repo := new(mockPlacementRepo)
		repo.On("LatestRun", ctx).Return(nil, domain.ErrRunNotFound)

		dto, err := NewGetLatestRunHandler(repo).Handle(ctx)
		require.NoError(t, err)
		assert.Nil(t, dto)
	})

	t.Run("returns the stored run", func(t *testing.T) {
		id := uuid.New()
		repo := new(mockPlacementRepo)
		repo.On("LatestRun", ctx).Return(&domain.Run{
			ID:          id,
			Now:         day(19, 8, 0),
			HorizonDays: 7,
			Result: domain.ScheduleResult{
				Placements:  []domain.Placement{{TaskID: "a", Start: day(19, 9, 0), End: day(19, 9, 45)}},
				Unscheduled: []string{"b"},
			},
		}, nil)

		dto, err := NewGetLatestRunHandler(repo).Handle(ctx)
		require.NoError(t, err)
		assert.Equal(t, id.String(), dto.ID)
		assert.Equal(t, 7, dto.HorizonDays)
		require.Len(t, dto.Placements, 1)
		assert.Equal(t, 45, dto.Placements[0].DurationMin)
		assert.Equal(t, []string{"b"}, dto.Unscheduled)
	})
}

func TestUpcomingOccurrencesHandler(t *testing.T) {
	tasks := []domain.Task{
		{ID: "gym", LegacyID: "legacy-gym", Recurrence: domain.DailyRecurrence{}, CompletedOccurrences: []string{"2026-10-20"}},
	}
	handler := NewUpcomingOccurrencesHandler()

	occs, err := handler.Handle(context.Background(), UpcomingOccurrencesQuery{
		Tasks:       tasks,
		TaskID:      "legacy-gym",
		Now:         day(19, 8, 0),
		HorizonDays: 3,
	})
	require.NoError(t, err)
	require.Len(t, occs, 3)
	for _, occ := range occs {
		assert.NotEqual(t, "gym-occ-1", occ.ID)
	}

	_, err = handler.Handle(context.Background(), UpcomingOccurrencesQuery{Tasks: tasks, TaskID: "missing", Now: day(19, 8, 0)})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMissedReportHandler(t *testing.T) {
	ctx := context.Background()
	now := day(21, 12, 0)
	repo := new(mockPlacementRepo)
	repo.On("ListPlacements", ctx, day(14, 0, 0), now).Return([]domain.Placement{
		{TaskID: "report", Start: day(20, 9, 0), End: day(20, 9, 30)},
		{TaskID: "report", Start: day(20, 10, 0), End: day(20, 10, 30)},
		{TaskID: "done", Start: day(20, 11, 0), End: day(20, 12, 0)},
	}, nil)

	dto, err := NewMissedReportHandler(repo).Handle(ctx, MissedReportQuery{
		Tasks: []domain.Task{{ID: "report"}, {ID: "done", Completed: true}},
		Now:   now,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, dto.Total)
	assert.Equal(t, map[string]int{"report": 1}, dto.ByTask)
	require.Len(t, dto.Misses, 1)
	assert.Equal(t, day(20, 10, 30), dto.Misses[0].EndedAt)
	repo.AssertExpectations(t)
}
