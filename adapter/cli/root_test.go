package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autoplan/pkg/observability"
)

func TestRun_AttachesCorrelationID(t *testing.T) {
	var seen string
	echoCmd := &cobra.Command{
		Use: "echo",
		RunE: func(cmd *cobra.Command, args []string) error {
			seen = observability.CorrelationIDFromContext(cmd.Context())
			return nil
		},
	}
	AddCommand(echoCmd)
	t.Cleanup(func() { rootCmd.RemoveCommand(echoCmd) })

	rootCmd.SetArgs([]string{"echo"})
	require.NoError(t, Run(context.Background()))

	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRun_CorrelationIDFlag(t *testing.T) {
	var seen string
	echoCmd := &cobra.Command{
		Use: "echo",
		RunE: func(cmd *cobra.Command, args []string) error {
			seen = observability.CorrelationIDFromContext(cmd.Context())
			return nil
		},
	}
	AddCommand(echoCmd)
	t.Cleanup(func() {
		rootCmd.RemoveCommand(echoCmd)
		correlationID = ""
	})

	id := uuid.NewString()
	rootCmd.SetArgs([]string{"echo", "--correlation-id", id})
	require.NoError(t, Run(context.Background()))
	assert.Equal(t, id, seen)

	correlationID = ""
	rootCmd.SetArgs([]string{"echo", "--correlation-id", "nightly"})
	err := Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --correlation-id")
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	require.NoError(t, Run(context.Background()))
	assert.Contains(t, out.String(), "autoplan dev")
	assert.Contains(t, out.String(), "go:")

	out.Reset()
	rootCmd.SetArgs([]string{"version", "--short"})
	t.Cleanup(func() { versionShort = false })
	require.NoError(t, Run(context.Background()))
	assert.Equal(t, "dev\n", out.String())
}

func TestSetApp(t *testing.T) {
	a := NewApp(nil, nil, nil, nil, nil)
	a.SetPlanSource(nil, "week.yaml", 7, nil)

	SetApp(a)
	t.Cleanup(func() { SetApp(nil) })

	require.Same(t, a, GetApp())
	assert.Equal(t, "week.yaml", GetApp().PlanPath)
	assert.Equal(t, 7, GetApp().HorizonDays)
	assert.NotNil(t, GetApp().Location)
}
