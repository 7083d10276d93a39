package queries

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

var ErrTaskNotFound = errors.New("task not found")

// OccurrenceDTO is one upcoming task occurrence.
type OccurrenceDTO struct {
	ID          string     `json:"id"`
	Index       int        `json:"index"`
	Deadline    time.Time  `json:"deadline"`
	WindowStart *time.Time `json:"window_start,omitempty"`
}

// UpcomingOccurrencesQuery asks for a task's open occurrences in the
// horizon. TaskID matches either the task ID or its legacy ID.
type UpcomingOccurrencesQuery struct {
	Tasks       []domain.Task
	TaskID      string
	Now         time.Time
	HorizonDays int
}

// QueryName implements application.Query.
func (UpcomingOccurrencesQuery) QueryName() string { return "scheduling.upcoming_occurrences" }

// UpcomingOccurrencesHandler handles the UpcomingOccurrencesQuery.
type UpcomingOccurrencesHandler struct{}

// NewUpcomingOccurrencesHandler creates a new UpcomingOccurrencesHandler.
func NewUpcomingOccurrencesHandler() *UpcomingOccurrencesHandler {
	return &UpcomingOccurrencesHandler{}
}

// Handle executes the UpcomingOccurrencesQuery.
func (h *UpcomingOccurrencesHandler) Handle(_ context.Context, query UpcomingOccurrencesQuery) ([]OccurrenceDTO, error) {
	task, ok := findTask(query.Tasks, query.TaskID)
	if !ok {
		return nil, ErrTaskNotFound
	}

	occurrences, err := services.UpcomingOccurrences(task, query.Now, query.HorizonDays)
	if err != nil {
		return nil, err
	}

	out := make([]OccurrenceDTO, len(occurrences))
	for i, occ := range occurrences {
		out[i] = OccurrenceDTO{
			ID:          occ.ID,
			Index:       occ.Index,
			Deadline:    occ.Deadline,
			WindowStart: occ.WindowStart,
		}
	}
	return out, nil
}

func findTask(tasks []domain.Task, id string) (domain.Task, bool) {
	for _, t := range tasks {
		if t.ID == id || (t.LegacyID != "" && t.LegacyID == id) {
			return t, true
		}
	}
	return domain.Task{}, false
}
