// Package planfile reads scheduling input from YAML plan files.
package planfile

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/security"
)

var ErrEmptyPlan = errors.New("plan file is empty")

// Plan is the decoded scheduling input of one plan file.
type Plan struct {
	Location    *time.Location
	HorizonDays int
	TimeMaps    []domain.TimeMap
	Tasks       []domain.Task
	Busy        []domain.Interval
	Pinned      []domain.Placement
}

type planDocument struct {
	Timezone    string              `yaml:"timezone"`
	HorizonDays int                 `yaml:"horizon_days"`
	TimeMaps    []timeMapDocument   `yaml:"timemaps"`
	Tasks       []taskDocument      `yaml:"tasks"`
	Busy        []busyDocument      `yaml:"busy"`
	Pinned      []placementDocument `yaml:"pinned"`
}

type timeMapDocument struct {
	ID    string         `yaml:"id"`
	Name  string         `yaml:"name"`
	Rules []ruleDocument `yaml:"rules"`

	// Single-window form.
	Days  []string `yaml:"days"`
	Start string   `yaml:"start"`
	End   string   `yaml:"end"`
}

type ruleDocument struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type taskDocument struct {
	ID                   string                 `yaml:"id"`
	LegacyID             string                 `yaml:"legacy_id"`
	Title                string                 `yaml:"title"`
	Section              string                 `yaml:"section"`
	Subsection           string                 `yaml:"subsection"`
	Duration             int                    `yaml:"duration"`
	MinBlock             int                    `yaml:"min_block"`
	Priority             int                    `yaml:"priority"`
	TimeMaps             []string               `yaml:"timemaps"`
	Deadline             string                 `yaml:"deadline"`
	EarliestStart        string                 `yaml:"earliest_start"`
	Recurrence           *domain.RecurrenceSpec `yaml:"recurrence"`
	RRule                string                 `yaml:"rrule"`
	Parent               string                 `yaml:"parent"`
	ScheduleMode         string                 `yaml:"schedule_mode"`
	Order                *int                   `yaml:"order"`
	CompletedOccurrences []string               `yaml:"completed_occurrences"`
	Completed            bool                   `yaml:"completed"`
}

type busyDocument struct {
	Source string `yaml:"source"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
}

type placementDocument struct {
	Task       string `yaml:"task"`
	Occurrence string `yaml:"occurrence"`
	TimeMap    string `yaml:"timemap"`
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
}

// Loader decodes plan files. Malformed values inside an otherwise valid
// document are logged and skipped.
type Loader struct {
	logger *slog.Logger
	loc    *time.Location
}

// NewLoader creates a loader. loc is used when the plan names no timezone.
func NewLoader(loc *time.Location, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Loader{logger: logger, loc: loc}
}

// Load reads and decodes the plan file at path.
func (l *Loader) Load(path string) (*Plan, error) {
	data, err := security.SafeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	plan, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return plan, nil
}

// Parse decodes a plan document.
func (l *Loader) Parse(data []byte) (*Plan, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyPlan
	}

	var doc planDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	loc := l.loc
	if doc.Timezone != "" {
		tz, err := time.LoadLocation(doc.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", doc.Timezone, err)
		}
		loc = tz
	}

	plan := &Plan{Location: loc, HorizonDays: doc.HorizonDays}
	for _, tm := range doc.TimeMaps {
		if timeMap, ok := l.timeMap(tm); ok {
			plan.TimeMaps = append(plan.TimeMaps, timeMap)
		}
	}
	for _, t := range doc.Tasks {
		plan.Tasks = append(plan.Tasks, l.task(t, loc))
	}
	for _, b := range doc.Busy {
		start, okStart := domain.ParseInstant(b.Start, loc)
		end, okEnd := domain.ParseInstant(b.End, loc)
		if !okStart || !okEnd {
			l.logger.Warn("skipping busy interval with unparsable time", "source", b.Source, "start", b.Start, "end", b.End)
			continue
		}
		plan.Busy = append(plan.Busy, domain.Interval{SourceID: b.Source, Start: start, End: end})
	}
	for _, p := range doc.Pinned {
		start, okStart := domain.ParseInstant(p.Start, loc)
		end, okEnd := domain.ParseInstant(p.End, loc)
		if !okStart || !okEnd {
			l.logger.Warn("skipping pinned placement with unparsable time", "task_id", p.Task, "start", p.Start, "end", p.End)
			continue
		}
		plan.Pinned = append(plan.Pinned, domain.Placement{
			TaskID:       p.Task,
			OccurrenceID: p.Occurrence,
			TimeMapID:    p.TimeMap,
			Start:        start,
			End:          end,
			Pinned:       true,
		})
	}
	return plan, nil
}

func (l *Loader) timeMap(doc timeMapDocument) (domain.TimeMap, bool) {
	if len(doc.Rules) == 0 && len(doc.Days) > 0 {
		legacy := domain.LegacyTimeMap{ID: doc.ID, Name: doc.Name, Start: doc.Start, End: doc.End}
		for _, name := range doc.Days {
			if wd, ok := domain.ParseWeekday(name); ok {
				legacy.Days = append(legacy.Days, wd)
			} else {
				l.logger.Warn("ignoring unknown weekday", "timemap_id", doc.ID, "day", name)
			}
		}
		tm, err := legacy.ToTimeMap()
		if err != nil {
			l.logger.Warn("skipping timemap", "timemap_id", doc.ID, "error", err)
			return domain.TimeMap{}, false
		}
		return tm, true
	}

	tm := domain.TimeMap{ID: doc.ID, Name: doc.Name}
	for _, r := range doc.Rules {
		wd, ok := domain.ParseWeekday(r.Day)
		if !ok {
			l.logger.Warn("skipping rule with unknown weekday", "timemap_id", doc.ID, "day", r.Day)
			continue
		}
		start, errStart := domain.ParseTimeOfDay(r.Start)
		end, errEnd := domain.ParseTimeOfDay(r.End)
		if err := errors.Join(errStart, errEnd); err != nil {
			l.logger.Warn("skipping rule with unparsable time", "timemap_id", doc.ID, "error", err)
			continue
		}
		tm.Rules = append(tm.Rules, domain.AvailabilityRule{Weekday: wd, Start: start, End: end})
	}
	return tm, true
}

func (l *Loader) task(doc taskDocument, loc *time.Location) domain.Task {
	task := domain.Task{
		ID:                   doc.ID,
		LegacyID:             doc.LegacyID,
		Title:                doc.Title,
		Section:              doc.Section,
		Subsection:           doc.Subsection,
		DurationMinutes:      doc.Duration,
		MinBlockMinutes:      doc.MinBlock,
		Priority:             doc.Priority,
		TimeMapIDs:           doc.TimeMaps,
		ParentID:             doc.Parent,
		ScheduleMode:         domain.ScheduleMode(strings.ToLower(doc.ScheduleMode)),
		Order:                doc.Order,
		CompletedOccurrences: doc.CompletedOccurrences,
		Completed:            doc.Completed,
	}

	task.Deadline = l.instant(doc.Deadline, loc, task.ID, "deadline")
	task.EarliestStart = l.instant(doc.EarliestStart, loc, task.ID, "earliest_start")

	switch {
	case doc.RRule != "":
		rule, err := domain.ParseRRule(doc.RRule, loc)
		if err != nil {
			l.logger.Warn("unsupported recurrence rule", "task_id", task.ID, "rrule", doc.RRule, "error", err)
			rule = domain.UnknownRecurrence{Name: "rrule"}
		}
		task.Recurrence = rule
	case doc.Recurrence != nil:
		task.Recurrence = doc.Recurrence.Build(loc)
	}
	return task
}

func (l *Loader) instant(value string, loc *time.Location, taskID, field string) *time.Time {
	if value == "" {
		return nil
	}
	t, ok := domain.ParseInstant(value, loc)
	if !ok {
		l.logger.Warn("ignoring unparsable date", "task_id", taskID, "field", field, "value", value)
		return nil
	}
	return &t
}
