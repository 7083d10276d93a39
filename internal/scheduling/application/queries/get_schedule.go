package queries

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// PlacementDTO is a data transfer object for stored placements.
type PlacementDTO struct {
	TaskID       string    `json:"task_id"`
	OccurrenceID string    `json:"occurrence_id,omitempty"`
	TimeMapID    string    `json:"time_map_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	DurationMin  int       `json:"duration_min"`
	Pinned       bool      `json:"pinned"`
}

// ScheduleDTO is a data transfer object for a window of placements.
type ScheduleDTO struct {
	From               time.Time      `json:"from"`
	To                 time.Time      `json:"to"`
	Placements         []PlacementDTO `json:"placements"`
	TotalScheduledMins int            `json:"total_scheduled_mins"`
	PinnedCount        int            `json:"pinned_count"`
}

// GetScheduleQuery contains the window to list. A zero To means one day
// after From.
type GetScheduleQuery struct {
	From time.Time
	To   time.Time
}

// QueryName implements application.Query.
func (GetScheduleQuery) QueryName() string { return "scheduling.get_schedule" }

// GetScheduleHandler handles the GetScheduleQuery.
type GetScheduleHandler struct {
	repo domain.PlacementRepository
}

// NewGetScheduleHandler creates a new GetScheduleHandler.
func NewGetScheduleHandler(repo domain.PlacementRepository) *GetScheduleHandler {
	return &GetScheduleHandler{repo: repo}
}

// Handle executes the GetScheduleQuery.
func (h *GetScheduleHandler) Handle(ctx context.Context, query GetScheduleQuery) (*ScheduleDTO, error) {
	to := query.To
	if to.IsZero() {
		to = domain.AddDays(query.From, 1)
	}
	if !to.After(query.From) {
		return nil, domain.ErrInvalidInterval
	}

	placements, err := h.repo.ListPlacements(ctx, query.From, to)
	if err != nil {
		return nil, err
	}
	return toScheduleDTO(query.From, to, placements), nil
}

// RunDTO summarizes a stored scheduling run.
type RunDTO struct {
	ID          string         `json:"id"`
	Now         time.Time      `json:"now"`
	HorizonDays int            `json:"horizon_days"`
	CreatedAt   time.Time      `json:"created_at"`
	Placements  []PlacementDTO `json:"placements"`
	Unscheduled []string       `json:"unscheduled"`
	Ignored     []string       `json:"ignored"`
	Deferred    []string       `json:"deferred"`
}

// GetLatestRunHandler returns the most recent stored run.
type GetLatestRunHandler struct {
	repo domain.PlacementRepository
}

// NewGetLatestRunHandler creates a new GetLatestRunHandler.
func NewGetLatestRunHandler(repo domain.PlacementRepository) *GetLatestRunHandler {
	return &GetLatestRunHandler{repo: repo}
}

// Handle returns nil without error when no run has been stored yet.
func (h *GetLatestRunHandler) Handle(ctx context.Context) (*RunDTO, error) {
	run, err := h.repo.LatestRun(ctx)
	if errors.Is(err, domain.ErrRunNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &RunDTO{
		ID:          run.ID.String(),
		Now:         run.Now,
		HorizonDays: run.HorizonDays,
		CreatedAt:   run.CreatedAt,
		Placements:  ToPlacementDTOs(run.Result.Placements),
		Unscheduled: run.Result.Unscheduled,
		Ignored:     run.Result.Ignored,
		Deferred:    run.Result.Deferred,
	}, nil
}

func toScheduleDTO(from, to time.Time, placements []domain.Placement) *ScheduleDTO {
	dto := &ScheduleDTO{From: from, To: to, Placements: ToPlacementDTOs(placements)}
	for _, p := range dto.Placements {
		dto.TotalScheduledMins += p.DurationMin
		if p.Pinned {
			dto.PinnedCount++
		}
	}
	return dto
}

// ToPlacementDTOs converts engine placements for output.
func ToPlacementDTOs(placements []domain.Placement) []PlacementDTO {
	out := make([]PlacementDTO, len(placements))
	for i, p := range placements {
		out[i] = PlacementDTO{
			TaskID:       p.TaskID,
			OccurrenceID: p.OccurrenceID,
			TimeMapID:    p.TimeMapID,
			Start:        p.Start,
			End:          p.End,
			DurationMin:  int(p.Duration().Minutes()),
			Pinned:       p.Pinned,
		}
	}
	return out
}
