package application

import "context"

// Query represents a read-only request.
type Query interface {
	QueryName() string
}

// QueryHandler answers one query type.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// Named returns the registered name of a command or query, or "" for
// anything else. Used as a log attribute.
func Named(v any) string {
	switch n := v.(type) {
	case Command:
		return n.CommandName()
	case Query:
		return n.QueryName()
	default:
		return ""
	}
}
