package repository

import (
	"context"
	"errors"
)

// SubscribeMode selects what a subscription reports.
type SubscribeMode int

const (
	// ModeValue reports the whole value at the path whenever it changes.
	ModeValue SubscribeMode = iota
	// ModeChildren reports added, changed and removed direct children.
	ModeChildren
)

type ChangeKind string

const (
	ValueChanged ChangeKind = "value"
	ChildAdded   ChangeKind = "child_added"
	ChildChanged ChangeKind = "child_changed"
	ChildRemoved ChangeKind = "child_removed"
)

// ChangeEvent is delivered to subscribers. For child events Key is the
// child key and Value its new value (the old value on removal).
type ChangeEvent struct {
	Kind  ChangeKind
	Path  string
	Key   string
	Value interface{}
}

// TransactionFunc computes the new value at a path from its current value.
// It may be invoked several times when concurrent writers conflict and must
// not have side effects beyond computing the result. Returning a nil value
// removes the node; returning ErrAbortTransaction leaves it untouched.
type TransactionFunc func(current interface{}) (interface{}, error)

// Store is the hierarchical, path-addressed, subscribable database every
// repository is built on. Paths are slash separated ("activities/a1/title").
// Values are JSON-like: maps, slices, strings, numbers, bools. Reading an
// absent path yields nil without error, and removing one is a no-op.
type Store interface {
	Get(ctx context.Context, path string) (interface{}, error)
	Set(ctx context.Context, path string, value interface{}) error
	// Update writes every path atomically; a nil value removes the path.
	Update(ctx context.Context, values map[string]interface{}) error
	// Transaction atomically replaces the value at path and returns the
	// committed value.
	Transaction(ctx context.Context, path string, fn TransactionFunc) (interface{}, error)
	Remove(ctx context.Context, path string) error
	// QueryByChild returns the children of path whose child field equals value.
	QueryByChild(ctx context.Context, path, child string, value interface{}) (map[string]interface{}, error)
	// Subscribe streams changes at path until ctx is cancelled, after which
	// the channel is closed.
	Subscribe(ctx context.Context, path string, mode SubscribeMode) (<-chan ChangeEvent, error)
}

// ErrAbortTransaction returned from a TransactionFunc ends the transaction
// without writing; Transaction then returns the value it last observed.
var ErrAbortTransaction = errors.New("transaction aborted")
