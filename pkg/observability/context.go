package observability

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Attribute keys shared by logs and timers.
const (
	CorrelationIDKey = "correlation_id"
	RunIDKey         = "run_id"
	OperationKey     = "operation"
	DurationKey      = "duration_ms"
	ErrorKey         = "error"
)

// trace is the log-correlation state carried by a context. Each With* call
// stores a copy, so a child context never changes what its parent sees.
type trace struct {
	correlationID string
	runID         string
	operations    []string // outermost first
}

type traceKey struct{}

func traceFrom(ctx context.Context) trace {
	if ctx == nil {
		return trace{}
	}
	t, _ := ctx.Value(traceKey{}).(trace)
	return t
}

func withTrace(ctx context.Context, t trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// WithCorrelationID ties everything logged under ctx to one caller request.
// An empty id generates a new UUID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	t := traceFrom(ctx)
	t.correlationID = id
	return withTrace(ctx, t)
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).correlationID
}

// WithRunID tags everything logged under ctx with a scheduling run.
func WithRunID(ctx context.Context, id string) context.Context {
	t := traceFrom(ctx)
	t.runID = id
	return withTrace(ctx, t)
}

// RunIDFromContext returns the scheduling run ID, or "".
func RunIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).runID
}

// WithOperation nests operation inside the current one.
func WithOperation(ctx context.Context, operation string) context.Context {
	t := traceFrom(ctx)
	ops := make([]string, len(t.operations), len(t.operations)+1)
	copy(ops, t.operations)
	t.operations = append(ops, operation)
	return withTrace(ctx, t)
}

// OperationFromContext returns the innermost operation, or "".
func OperationFromContext(ctx context.Context) string {
	ops := traceFrom(ctx).operations
	if len(ops) == 0 {
		return ""
	}
	return ops[len(ops)-1]
}

// OperationPath joins the nested operations outermost first, for example
// "autoplan schedule run/calendar.busy".
func OperationPath(ctx context.Context) string {
	return strings.Join(traceFrom(ctx).operations, "/")
}
