package schedule

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autoplan/adapter/cli"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/application/commands"
	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/infrastructure/planfile"
)

var (
	runHorizon int
	runNow     string
	runSave    bool
	runStats   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Schedule the tasks of a plan file",
	Long: `Place every task of the plan into free time within the horizon.

Busy time comes from the plan file and any configured calendars. Without
--save the run is a dry run: nothing is stored and no event is published.

Examples:
  autoplan schedule run
  autoplan schedule run --plan week.yaml --horizon 7
  autoplan schedule run --now 2026-10-19T08:00:00+02:00 --save
  autoplan schedule run --json
  autoplan schedule run --stats`,
	Aliases: []string{"auto", "generate"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		if app.AutoScheduleHandler == nil {
			return errNoApp
		}

		plan, err := loadPlan(app)
		if err != nil {
			return err
		}
		loc := planLocation(plan, app)
		now, err := parseNow(runNow, loc)
		if err != nil {
			return err
		}
		horizon := resolveHorizon(cmd, runHorizon, plan, app)

		result, err := runPlan(cmd.Context(), app, plan, now, horizon, runSave)
		if err != nil {
			return fmt.Errorf("failed to schedule: %w", err)
		}
		if err := writeRunResult(cmd.OutOrStdout(), result, plan, horizon, loc); err != nil {
			return err
		}
		if runStats && app.Metrics != nil {
			return app.Metrics.WriteText(cmd.ErrOrStderr())
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runHorizon, "horizon", 14, "days to schedule beyond today")
	runCmd.Flags().StringVar(&runNow, "now", "", "schedule as of this RFC 3339 instant (default: now)")
	runCmd.Flags().BoolVar(&runSave, "save", false, "store the run and publish a run event")
	runCmd.Flags().BoolVar(&runStats, "stats", false, "print run metrics to stderr")
}

func runPlan(ctx context.Context, app *cli.App, plan *planfile.Plan, now time.Time, horizon int, save bool) (*commands.AutoScheduleResult, error) {
	return app.AutoScheduleHandler.Handle(ctx, commands.AutoScheduleCommand{
		Tasks:       plan.Tasks,
		TimeMaps:    plan.TimeMaps,
		Busy:        plan.Busy,
		Pinned:      plan.Pinned,
		HorizonDays: horizon,
		Now:         now,
		Save:        save,
	})
}

type pinnedDropOutput struct {
	TaskID string    `json:"task_id"`
	Start  time.Time `json:"start"`
	Reason string    `json:"reason"`
}

type runOutput struct {
	RunID         string                         `json:"run_id"`
	Now           time.Time                      `json:"now"`
	HorizonDays   int                            `json:"horizon_days"`
	Saved         bool                           `json:"saved"`
	Placements    []scheduleQueries.PlacementDTO `json:"placements"`
	Unscheduled   []string                       `json:"unscheduled"`
	Ignored       []string                       `json:"ignored"`
	Deferred      []string                       `json:"deferred"`
	PinnedDropped []pinnedDropOutput             `json:"pinned_dropped,omitempty"`
	FailedSources []string                       `json:"failed_sources,omitempty"`
	DurationMS    int64                          `json:"duration_ms"`
}

func writeRunResult(w io.Writer, result *commands.AutoScheduleResult, plan *planfile.Plan, horizon int, loc *time.Location) error {
	placements := scheduleQueries.ToPlacementDTOs(result.Schedule.Placements)

	if jsonOutput {
		out := runOutput{
			RunID:         result.RunID.String(),
			Now:           result.Now,
			HorizonDays:   horizon,
			Saved:         result.Saved,
			Placements:    placements,
			Unscheduled:   result.Schedule.Unscheduled,
			Ignored:       result.Schedule.Ignored,
			Deferred:      result.Schedule.Deferred,
			FailedSources: result.FailedSources,
			DurationMS:    result.Duration.Milliseconds(),
		}
		for _, d := range result.PinnedDropped {
			out.PinnedDropped = append(out.PinnedDropped, pinnedDropOutput{
				TaskID: d.Placement.TaskID,
				Start:  d.Placement.Start,
				Reason: d.Reason,
			})
		}
		return printJSON(w, out)
	}

	titles := taskTitles(plan.Tasks)
	heading(w, fmt.Sprintf("Schedule from %s (%d days)", result.Now.In(loc).Format(dateLayout), horizon))

	if len(placements) == 0 {
		fmt.Fprintln(w, "\n  Nothing could be placed.")
	} else {
		printPlacements(w, placements, titles, loc)
	}

	fmt.Fprintln(w)
	printIDList(w, "Unscheduled", result.Schedule.Unscheduled, titles)
	printIDList(w, "Deferred", result.Schedule.Deferred, titles)
	printIDList(w, "Ignored", result.Schedule.Ignored, titles)
	for _, d := range result.PinnedDropped {
		fmt.Fprintf(w, "Dropped pin: %s at %s (%s)\n",
			titleFor(titles, d.Placement.TaskID), d.Placement.Start.In(loc).Format("Mon 15:04"), d.Reason)
	}
	if len(result.FailedSources) > 0 {
		fmt.Fprintf(w, "Calendars unavailable: %v\n", result.FailedSources)
	}

	rule(w)
	fmt.Fprintf(w, "Summary: %d placements, %d tasks scheduled, %d unscheduled\n",
		len(placements), result.Schedule.ScheduledCount(), len(result.Schedule.Unscheduled))
	if result.Saved {
		fmt.Fprintf(w, "Saved run %s\n", result.RunID)
	} else {
		fmt.Fprintln(w, "Dry run, use --save to store it")
	}
	return nil
}
