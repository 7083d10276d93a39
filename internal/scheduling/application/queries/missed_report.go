package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// DefaultLookbackDays is how far back stored placements are checked.
const DefaultLookbackDays = 7

// MissDTO is one missed occurrence.
type MissDTO struct {
	TaskID       string    `json:"task_id"`
	OccurrenceID string    `json:"occurrence_id,omitempty"`
	EndedAt      time.Time `json:"ended_at"`
}

// MissedReportDTO summarizes missed work.
type MissedReportDTO struct {
	Since   time.Time      `json:"since"`
	Now     time.Time      `json:"now"`
	Checked int            `json:"checked"`
	Total   int            `json:"total"`
	ByTask  map[string]int `json:"by_task"`
	Misses  []MissDTO      `json:"misses"`
}

// MissedReportQuery checks stored placements that ended before Now against
// the current task state.
type MissedReportQuery struct {
	Tasks        []domain.Task
	Now          time.Time
	LookbackDays int
}

// QueryName implements application.Query.
func (MissedReportQuery) QueryName() string { return "scheduling.missed_report" }

// MissedReportHandler handles the MissedReportQuery.
type MissedReportHandler struct {
	repo domain.PlacementRepository
}

// NewMissedReportHandler creates a new MissedReportHandler.
func NewMissedReportHandler(repo domain.PlacementRepository) *MissedReportHandler {
	return &MissedReportHandler{repo: repo}
}

// Handle executes the MissedReportQuery.
func (h *MissedReportHandler) Handle(ctx context.Context, query MissedReportQuery) (*MissedReportDTO, error) {
	lookback := query.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	since := domain.StartOfDay(domain.AddDays(query.Now, -lookback))

	placements, err := h.repo.ListPlacements(ctx, since, query.Now)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}

	report := services.ClassifyMisses(query.Tasks, placements, query.Now)
	dto := &MissedReportDTO{
		Since:   since,
		Now:     query.Now,
		Checked: report.Checked,
		Total:   report.Total(),
		ByTask:  report.ByTask,
		Misses:  make([]MissDTO, len(report.Misses)),
	}
	for i, m := range report.Misses {
		dto.Misses[i] = MissDTO{TaskID: m.TaskID, OccurrenceID: m.OccurrenceID, EndedAt: m.EndedAt}
	}
	return dto, nil
}
