package schedule

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
)

var (
	missedLookback int
	missedNow      string
)

var missedCmd = &cobra.Command{
	Use:   "missed",
	Short: "Report stored placements that passed without completion",
	Long: `Compare stored placements that already ended with the completion state
in the plan file.

Examples:
  autoplan schedule missed
  autoplan schedule missed --lookback 14`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		plan, err := loadPlan(app)
		if err != nil {
			return err
		}
		loc := planLocation(plan, app)
		now, err := parseNow(missedNow, loc)
		if err != nil {
			return err
		}

		report, err := app.MissedReportHandler.Handle(cmd.Context(), scheduleQueries.MissedReportQuery{
			Tasks:        plan.Tasks,
			Now:          now,
			LookbackDays: missedLookback,
		})
		if err != nil {
			return fmt.Errorf("failed to build missed report: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, report)
		}

		titles := taskTitles(plan.Tasks)
		heading(out, fmt.Sprintf("Missed since %s", report.Since.In(loc).Format(dateLayout)))
		if report.Total == 0 {
			fmt.Fprintf(out, "  Nothing missed (%d placements checked).\n", report.Checked)
			return nil
		}
		for _, m := range report.Misses {
			fmt.Fprintf(out, "  %s  %s", m.EndedAt.In(loc).Format("Mon Jan 2 15:04"), titleFor(titles, m.TaskID))
			if m.OccurrenceID != "" {
				fmt.Fprintf(out, " #%s", m.OccurrenceID)
			}
			fmt.Fprintln(out)
		}

		rule(out)
		ids := make([]string, 0, len(report.ByTask))
		for id := range report.ByTask {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "  %-30s %d\n", titleFor(titles, id), report.ByTask[id])
		}
		fmt.Fprintf(out, "Total: %d missed of %d checked\n", report.Total, report.Checked)
		return nil
	},
}

func init() {
	missedCmd.Flags().IntVar(&missedLookback, "lookback", scheduleQueries.DefaultLookbackDays, "days of stored placements to check")
	missedCmd.Flags().StringVar(&missedNow, "now", "", "report as of this RFC 3339 instant (default: now)")
}
