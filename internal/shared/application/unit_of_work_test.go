package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

// recordingUnitOfWork tracks calls and tags the context it hands out.
type recordingUnitOfWork struct {
	beginErr, commitErr, rollbackErr error
	calls                            []string
}

func (u *recordingUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	u.calls = append(u.calls, "begin")
	if u.beginErr != nil {
		return nil, u.beginErr
	}
	return context.WithValue(ctx, ctxKey{}, "tx"), nil
}

func (u *recordingUnitOfWork) Commit(context.Context) error {
	u.calls = append(u.calls, "commit")
	return u.commitErr
}

func (u *recordingUnitOfWork) Rollback(context.Context) error {
	u.calls = append(u.calls, "rollback")
	return u.rollbackErr
}

func TestWithUnitOfWork(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success with the transaction context", func(t *testing.T) {
		uow := &recordingUnitOfWork{}
		err := WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
			assert.Equal(t, "tx", txCtx.Value(ctxKey{}))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"begin", "commit"}, uow.calls)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		uow := &recordingUnitOfWork{}
		fnErr := errors.New("insert failed")
		err := WithUnitOfWork(ctx, uow, func(context.Context) error { return fnErr })
		assert.Same(t, fnErr, err)
		assert.Equal(t, []string{"begin", "rollback"}, uow.calls)
	})

	t.Run("joins a failed rollback", func(t *testing.T) {
		uow := &recordingUnitOfWork{rollbackErr: errors.New("conn lost")}
		fnErr := errors.New("insert failed")
		err := WithUnitOfWork(ctx, uow, func(context.Context) error { return fnErr })
		require.Error(t, err)
		assert.ErrorIs(t, err, fnErr)
		assert.ErrorIs(t, err, uow.rollbackErr)
	})

	t.Run("does not run fn when begin fails", func(t *testing.T) {
		uow := &recordingUnitOfWork{beginErr: errors.New("pool closed")}
		ran := false
		err := WithUnitOfWork(ctx, uow, func(context.Context) error {
			ran = true
			return nil
		})
		assert.ErrorIs(t, err, uow.beginErr)
		assert.False(t, ran)
	})

	t.Run("returns the commit error", func(t *testing.T) {
		uow := &recordingUnitOfWork{commitErr: errors.New("serialization failure")}
		err := WithUnitOfWork(ctx, uow, func(context.Context) error { return nil })
		assert.ErrorIs(t, err, uow.commitErr)
	})

	t.Run("rolls back and repanics", func(t *testing.T) {
		uow := &recordingUnitOfWork{}
		assert.PanicsWithValue(t, "boom", func() {
			_ = WithUnitOfWork(ctx, uow, func(context.Context) error { panic("boom") })
		})
		assert.Equal(t, []string{"begin", "rollback"}, uow.calls)
	})

	t.Run("nil unit of work runs fn directly", func(t *testing.T) {
		ran := false
		require.NoError(t, WithUnitOfWork(ctx, nil, func(txCtx context.Context) error {
			ran = true
			assert.Nil(t, txCtx.Value(ctxKey{}))
			return nil
		}))
		assert.True(t, ran)
	})
}

func TestNamed(t *testing.T) {
	assert.Equal(t, "sample.cmd", Named(sampleCommand{}))
	assert.Equal(t, "sample.query", Named(sampleQuery{}))
	assert.Equal(t, "", Named(42))
}

type sampleCommand struct{}

func (sampleCommand) CommandName() string { return "sample.cmd" }

type sampleQuery struct{}

func (sampleQuery) QueryName() string { return "sample.query" }
