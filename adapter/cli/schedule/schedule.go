package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autoplan/adapter/cli"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/infrastructure/planfile"
)

var (
	planPath   string
	jsonOutput bool
)

var errNoApp = errors.New("schedule commands require an initialized application")

// Cmd is the schedule command group
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Plan tasks into your free time",
	Long:  `Run the scheduler over a plan file, inspect stored placements and missed work.`,
}

func init() {
	Cmd.PersistentFlags().StringVarP(&planPath, "plan", "p", "", "plan file (default: PLAN_PATH or plan.yaml)")
	Cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")

	Cmd.AddCommand(runCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(occurrencesCmd)
	Cmd.AddCommand(missedCmd)
	Cmd.AddCommand(watchCmd)
}

func requireApp() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil {
		return nil, errNoApp
	}
	return app, nil
}

func resolvePlanPath(app *cli.App) string {
	if planPath != "" {
		return planPath
	}
	if app.PlanPath != "" {
		return app.PlanPath
	}
	return "plan.yaml"
}

func loadPlan(app *cli.App) (*planfile.Plan, error) {
	loader := app.PlanLoader
	if loader == nil {
		loader = planfile.NewLoader(app.Location, cli.Logger())
	}
	return loader.Load(resolvePlanPath(app))
}

// parseNow reads an RFC 3339 instant. An empty value is the current time.
func parseNow(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now().In(loc), nil
	}
	now, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now, use RFC 3339 (2006-01-02T15:04:05Z07:00): %w", err)
	}
	return now.In(loc), nil
}

// resolveHorizon prefers the flag, then the plan file, then configuration.
func resolveHorizon(cmd *cobra.Command, flagValue int, plan *planfile.Plan, app *cli.App) int {
	if cmd.Flags().Changed("horizon") {
		return flagValue
	}
	if plan != nil && plan.HorizonDays > 0 {
		return plan.HorizonDays
	}
	return app.HorizonDays
}

func planLocation(plan *planfile.Plan, app *cli.App) *time.Location {
	if plan != nil && plan.Location != nil {
		return plan.Location
	}
	return app.Location
}
