package service

import "context"

// StoreTx runs a function inside a store transaction so the duplicate
// checks and insert of Create observe a consistent snapshot. SQL-backed
// deployments supply a runner that begins a transaction and threads it
// through context (pkg/platform/tx); stores without transactions get the
// pass-through default.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// passthroughTx executes the function directly. Used with the in-memory
// store, whose per-call locking is its own consistency boundary.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
