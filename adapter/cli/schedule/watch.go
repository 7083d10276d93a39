package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autoplan/adapter/cli"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/application/subscribers"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/infrastructure/planfile"
)

var (
	watchHorizon  int
	watchSave     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the scheduler whenever the plan file changes",
	Long: `Watch the plan file and schedule again after every change. Saved runs
are summarised as they complete. Stop with Ctrl-C.

Examples:
  autoplan schedule watch
  autoplan schedule watch --plan week.yaml --save=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		if app.AutoScheduleHandler == nil {
			return errNoApp
		}
		out := cmd.OutOrStdout()

		if app.LocalBus != nil {
			subscribers.NewRunSummarySubscriber(func(_ context.Context, s subscribers.RunSummary) error {
				fmt.Fprintf(out, "%s run %s: %d placed, %d unscheduled, %d deferred\n",
					time.Now().In(app.Location).Format("15:04:05"),
					s.RunID, s.Placed, len(s.Unscheduled), len(s.Deferred))
				return nil
			}, cli.Logger()).Register(app.LocalBus)
		}

		loader := app.PlanLoader
		if loader == nil {
			loader = planfile.NewLoader(app.Location, cli.Logger())
		}
		path := resolvePlanPath(app)

		onChange := func(ctx context.Context, plan *planfile.Plan) error {
			loc := planLocation(plan, app)
			horizon := resolveHorizon(cmd, watchHorizon, plan, app)
			result, err := runPlan(ctx, app, plan, time.Now().In(loc), horizon, watchSave)
			if err != nil {
				return err
			}
			if !result.Saved {
				return writeRunResult(out, result, plan, horizon, loc)
			}
			return nil
		}

		fmt.Fprintf(out, "Watching %s\n", path)
		return planfile.NewWatcher(path, loader, onChange, cli.Logger()).
			WithDebounce(watchDebounce).
			Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchHorizon, "horizon", 14, "days to schedule beyond today")
	watchCmd.Flags().BoolVar(&watchSave, "save", true, "store each run")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", planfile.DefaultDebounce, "quiet period before re-running")
}
