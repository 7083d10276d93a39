package schedule

import (
	"fmt"

	"github.com/spf13/cobra"

	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
)

var (
	occTaskID  string
	occHorizon int
	occNow     string
)

var occurrencesCmd = &cobra.Command{
	Use:   "occurrences",
	Short: "List the open occurrences of a repeating task",
	Long: `List the occurrences of a task that fall in the horizon and are not
yet completed.

Examples:
  autoplan schedule occurrences --task gym
  autoplan schedule occurrences --task standup --horizon 30`,
	Aliases: []string{"occ"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		if occTaskID == "" {
			return fmt.Errorf("--task is required")
		}

		plan, err := loadPlan(app)
		if err != nil {
			return err
		}
		loc := planLocation(plan, app)
		now, err := parseNow(occNow, loc)
		if err != nil {
			return err
		}

		occs, err := app.UpcomingOccurrencesHandler.Handle(cmd.Context(), scheduleQueries.UpcomingOccurrencesQuery{
			Tasks:       plan.Tasks,
			TaskID:      occTaskID,
			Now:         now,
			HorizonDays: resolveHorizon(cmd, occHorizon, plan, app),
		})
		if err != nil {
			return fmt.Errorf("failed to list occurrences: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, occs)
		}
		heading(out, fmt.Sprintf("Occurrences of %s", titleFor(taskTitles(plan.Tasks), occTaskID)))
		if len(occs) == 0 {
			fmt.Fprintln(out, "  None open in the horizon.")
			return nil
		}
		for _, occ := range occs {
			fmt.Fprintf(out, "  %-24s due %s", occ.ID, occ.Deadline.In(loc).Format("Mon Jan 2 15:04"))
			if occ.WindowStart != nil {
				fmt.Fprintf(out, ", from %s", occ.WindowStart.In(loc).Format("Mon Jan 2 15:04"))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	occurrencesCmd.Flags().StringVarP(&occTaskID, "task", "t", "", "task ID or legacy ID")
	occurrencesCmd.Flags().IntVar(&occHorizon, "horizon", 14, "days to look ahead")
	occurrencesCmd.Flags().StringVar(&occNow, "now", "", "list as of this RFC 3339 instant (default: now)")
}
