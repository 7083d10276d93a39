package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autoplan/adapter/cli"
	internalApp "github.com/felixgeelhaar/autoplan/internal/app"
	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/autoplan/pkg/config"
)

const testPlan = `
timezone: UTC
timemaps:
  - id: work
    days: [mon]
    start: "09:00"
    end: "12:00"
tasks:
  - id: write
    title: Write report
    duration: 60
    min_block: 60
    timemaps: [work]
  - id: gym
    title: Gym
    duration: 45
    timemaps: [evenings]
    recurrence:
      unit: day
    completed_occurrences: ["2026-10-20"]
`

// Monday 2026-10-19, 08:00 UTC.
const testNow = "2026-10-19T08:00:00Z"

// setupTestApp creates a CLI app backed by SQLite and a plan file.
func setupTestApp(t *testing.T) *cli.App {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		AppEnv:         "test",
		LocalMode:      true,
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(dir, "test.db"),
		Timezone:       "UTC",
		HorizonDays:    14,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	container, err := internalApp.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPlan), 0o600))

	app := cli.NewApp(
		container.AutoScheduleHandler,
		container.GetScheduleHandler,
		container.GetLatestRunHandler,
		container.UpcomingOccurrencesHandler,
		container.MissedReportHandler,
	)
	app.SetPlanSource(container.PlanLoader, path, cfg.HorizonDays, time.UTC)
	app.SetLocalBus(container.LocalBus)
	app.SetMetrics(container.Metrics)

	cli.SetApp(app)
	t.Cleanup(func() { cli.SetApp(nil) })

	planPath = ""
	jsonOutput = false
	return app
}

func execute(t *testing.T, cmd *cobra.Command, flags map[string]string) (string, error) {
	t.Helper()
	resetFlags(cmd)
	t.Cleanup(func() { resetFlags(cmd) })
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, nil)
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func TestRunCmd_DryRunJSON(t *testing.T) {
	setupTestApp(t)
	jsonOutput = true

	out, err := execute(t, runCmd, map[string]string{"now": testNow, "horizon": "0"})
	require.NoError(t, err)

	var result runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Saved)
	assert.Equal(t, 0, result.HorizonDays)

	require.NotEmpty(t, result.Placements)
	write := result.Placements[0]
	assert.Equal(t, "write", write.TaskID)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), write.Start.UTC())
	assert.Equal(t, 60, write.DurationMin)
}

func TestRunCmd_SaveThenShow(t *testing.T) {
	app := setupTestApp(t)

	out, err := execute(t, runCmd, map[string]string{"now": testNow, "horizon": "0", "save": "true"})
	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "Saved run")

	stored, err := app.GetScheduleHandler.Handle(context.Background(), scheduleQueries.GetScheduleQuery{
		From: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.Placements)

	out, err = execute(t, showCmd, map[string]string{"date": "2026-10-19"})
	require.NoError(t, err)
	assert.Contains(t, out, "09:00 - 10:00")

	out, err = execute(t, showCmd, map[string]string{"last": "true"})
	require.NoError(t, err)
	assert.Contains(t, out, "Run ")
}

func TestRunCmd_Stats(t *testing.T) {
	setupTestApp(t)

	var stderr bytes.Buffer
	runCmd.SetErr(&stderr)
	t.Cleanup(func() { runCmd.SetErr(nil) })

	_, err := execute(t, runCmd, map[string]string{"now": testNow, "horizon": "0", "stats": "true"})
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "autoplan.run.placed 1")
}

func TestRunCmd_InvalidNow(t *testing.T) {
	setupTestApp(t)

	_, err := execute(t, runCmd, map[string]string{"now": "tomorrow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --now")
}

func TestRunCmd_MissingPlan(t *testing.T) {
	setupTestApp(t)
	planPath = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := execute(t, runCmd, map[string]string{"now": testNow})
	assert.Error(t, err)
}

func TestRunCmd_NoApp(t *testing.T) {
	cli.SetApp(nil)
	_, err := execute(t, runCmd, nil)
	assert.ErrorIs(t, err, errNoApp)
}

func TestShowCmd_EmptyAndInvalidDate(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, showCmd, map[string]string{"date": "2026-10-19"})
	require.NoError(t, err)
	assert.Contains(t, out, "No stored placements")

	out, err = execute(t, showCmd, map[string]string{"last": "true"})
	require.NoError(t, err)
	assert.Contains(t, out, "No stored runs yet")

	_, err = execute(t, showCmd, map[string]string{"date": "19/10/2026"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date format")
}

func TestOccurrencesCmd(t *testing.T) {
	setupTestApp(t)
	jsonOutput = true

	out, err := execute(t, occurrencesCmd, map[string]string{"task": "gym", "now": testNow, "horizon": "3"})
	require.NoError(t, err)

	var occs []scheduleQueries.OccurrenceDTO
	require.NoError(t, json.Unmarshal([]byte(out), &occs))
	require.Len(t, occs, 3)
	for _, occ := range occs {
		assert.NotEqual(t, "gym-occ-1", occ.ID)
	}

	_, err = execute(t, occurrencesCmd, map[string]string{"task": "nope", "now": testNow})
	assert.ErrorIs(t, err, scheduleQueries.ErrTaskNotFound)

	_, err = execute(t, occurrencesCmd, nil)
	assert.Error(t, err)
}

func TestMissedCmd(t *testing.T) {
	setupTestApp(t)

	_, err := execute(t, runCmd, map[string]string{"now": testNow, "horizon": "0", "save": "true"})
	require.NoError(t, err)

	jsonOutput = true
	out, err := execute(t, missedCmd, map[string]string{"now": "2026-10-19T18:00:00Z"})
	require.NoError(t, err)

	var report scheduleQueries.MissedReportDTO
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.ByTask["write"])
}
