package schedule

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
)

var (
	showDate string
	showDays int
	showLast bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored placements",
	Long: `Display stored placements for today, a specific date or the latest run.

Examples:
  autoplan schedule show
  autoplan schedule show --date 2026-10-19 --days 7
  autoplan schedule show --last`,
	Aliases: []string{"today", "view"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if showLast {
			run, err := app.GetLatestRunHandler.Handle(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load latest run: %w", err)
			}
			if jsonOutput {
				return printJSON(out, run)
			}
			if run == nil {
				fmt.Fprintln(out, "No stored runs yet. Use 'autoplan schedule run --save'.")
				return nil
			}
			heading(out, fmt.Sprintf("Run %s", run.ID))
			fmt.Fprintf(out, "As of %s, %d days, stored %s\n",
				run.Now.In(app.Location).Format(time.RFC3339),
				run.HorizonDays,
				run.CreatedAt.In(app.Location).Format(time.RFC3339))
			printPlacements(out, run.Placements, nil, app.Location)
			fmt.Fprintln(out)
			printIDList(out, "Unscheduled", run.Unscheduled, nil)
			printIDList(out, "Deferred", run.Deferred, nil)
			printIDList(out, "Ignored", run.Ignored, nil)
			return nil
		}

		date := time.Now().In(app.Location)
		if showDate != "" {
			date, err = time.ParseInLocation("2006-01-02", showDate, app.Location)
			if err != nil {
				return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
			}
		}
		if showDays < 1 {
			return fmt.Errorf("--days must be at least 1, got %d", showDays)
		}
		from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, app.Location)

		schedule, err := app.GetScheduleHandler.Handle(cmd.Context(), scheduleQueries.GetScheduleQuery{
			From: from,
			To:   from.AddDate(0, 0, showDays),
		})
		if err != nil {
			return fmt.Errorf("failed to get schedule: %w", err)
		}
		if jsonOutput {
			return printJSON(out, schedule)
		}

		heading(out, fmt.Sprintf("Schedule for %s", from.Format(dateLayout)))
		if len(schedule.Placements) == 0 {
			fmt.Fprintln(out, "\n  No stored placements.")
			fmt.Fprintln(out, "\n  Use 'autoplan schedule run --save' to create some")
			return nil
		}
		printPlacements(out, schedule.Placements, nil, app.Location)
		rule(out)
		fmt.Fprintf(out, "Total: %d placements, %s scheduled, %d pinned\n",
			len(schedule.Placements), formatMinutes(schedule.TotalScheduledMins), schedule.PinnedCount)
		return nil
	},
}

func init() {
	showCmd.Flags().StringVarP(&showDate, "date", "d", "", "first day to show (YYYY-MM-DD)")
	showCmd.Flags().IntVar(&showDays, "days", 1, "number of days to show")
	showCmd.Flags().BoolVar(&showLast, "last", false, "show the latest stored run")
}
