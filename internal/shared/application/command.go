package application

import "context"

// Command represents a request that changes stored state.
type Command interface {
	CommandName() string
}

// CommandHandler executes one command type and reports what it did.
type CommandHandler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}
