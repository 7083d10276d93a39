package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

const (
	dayLayout  = "Mon Jan 2"
	dateLayout = "Monday, January 2, 2006"
	ruleWidth  = 60
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
}

func rule(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))
}

func taskTitles(tasks []domain.Task) map[string]string {
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		if t.Title != "" {
			titles[t.ID] = t.Title
		}
	}
	return titles
}

func titleFor(titles map[string]string, taskID string) string {
	if title, ok := titles[taskID]; ok {
		return title
	}
	return taskID
}

// printPlacements lists placements grouped by day in loc.
func printPlacements(w io.Writer, placements []scheduleQueries.PlacementDTO, titles map[string]string, loc *time.Location) {
	var lastDay string
	for _, p := range placements {
		start, end := p.Start.In(loc), p.End.In(loc)
		if day := start.Format(dayLayout); day != lastDay {
			fmt.Fprintf(w, "\n%s\n", day)
			lastDay = day
		}
		marker := "   "
		if p.Pinned {
			marker = "[p]"
		}
		fmt.Fprintf(w, "  %s %s - %s  %s (%s)",
			marker,
			start.Format("15:04"),
			end.Format("15:04"),
			titleFor(titles, p.TaskID),
			formatMinutes(p.DurationMin),
		)
		if p.OccurrenceID != "" {
			fmt.Fprintf(w, " #%s", p.OccurrenceID)
		}
		if p.TimeMapID != "" {
			fmt.Fprintf(w, " @%s", p.TimeMapID)
		}
		fmt.Fprintln(w)
	}
}

func printIDList(w io.Writer, label string, ids []string, titles map[string]string) {
	if len(ids) == 0 {
		return
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = titleFor(titles, id)
	}
	fmt.Fprintf(w, "%s (%d): %s\n", label, len(ids), strings.Join(names, ", "))
}

func formatMinutes(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	if mins%60 == 0 {
		return fmt.Sprintf("%dh", mins/60)
	}
	return fmt.Sprintf("%dh%dm", mins/60, mins%60)
}
