package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autoplan/pkg/observability"
)

var (
	logger        *slog.Logger
	correlationID string
)

type timerKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autoplan",
	Short: "autoplan - automatic task scheduling",
	Long: `autoplan places tasks into the free time of your time maps.

It reads tasks and time maps from a plan file, subtracts busy time from
your calendars and writes a schedule you can inspect, re-run or watch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		id := correlationID
		if id != "" {
			if _, err := uuid.Parse(id); err != nil {
				return fmt.Errorf("invalid --correlation-id %q: must be a UUID", id)
			}
		}
		ctx = observability.WithCorrelationID(ctx, id)
		ctx = observability.WithOperation(ctx, cmd.CommandPath())

		timer := observability.StartTimer(cmd.CommandPath()).WithLogger(Logger())
		cmd.SetContext(context.WithValue(ctx, timerKey{}, timer))
		Logger().DebugContext(ctx, "command start")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if timer, ok := cmd.Context().Value(timerKey{}).(*observability.Timer); ok {
			timer.Stop()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&correlationID, "correlation-id", "",
		"UUID attached to logs and published run events (default: random)")
}

// Run executes the root command with ctx. The error, if any, has already
// been printed to stderr.
func Run(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Logger returns the CLI logger, or slog.Default before SetLogger.
func Logger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
