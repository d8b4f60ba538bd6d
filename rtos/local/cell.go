package local

import (
	"context"

	"github.com/vexgo/go-robot-runtime/rtos"
)

// Cell is a task-local slot supporting whole-value get and set. Get returns
// a snapshot copy, so Cell is only meaningful for copyable content.
type Cell[T any] struct {
	init func() T
}

// NewCell declares a cell slot. init may be nil, in which case Get on a
// unit that never called Set fails with ErrUninitialized.
func NewCell[T any](init func() T) *Cell[T] {
	return &Cell[T]{init: init}
}

// Get returns a copy of the calling unit's current value, lazily
// initializing it if an initializer was provided.
func (c *Cell[T]) Get(ctx context.Context) (T, error) {
	var zero T
	t, ok := rtos.Current(ctx)
	if !ok {
		return zero, ErrNoTask
	}
	if v, ok := t.LocalLoad(c); ok {
		return v.(T), nil
	}
	if c.init == nil {
		return zero, ErrUninitialized
	}
	v := c.init()
	t.LocalStore(c, v)
	return v, nil
}

// Set replaces the calling unit's value.
func (c *Cell[T]) Set(ctx context.Context, value T) error {
	t, ok := rtos.Current(ctx)
	if !ok {
		return ErrNoTask
	}
	t.LocalStore(c, value)
	return nil
}

// RefCell is a task-local slot supporting move-style value exchange on top
// of the Cell operations.
type RefCell[T any] struct {
	cell Cell[T]
}

// NewRefCell declares a ref-cell slot. init may be nil.
func NewRefCell[T any](init func() T) *RefCell[T] {
	return &RefCell[T]{cell: Cell[T]{init: init}}
}

// Get returns a copy of the calling unit's current value.
func (c *RefCell[T]) Get(ctx context.Context) (T, error) {
	return c.cell.Get(ctx)
}

// Set replaces the calling unit's value.
func (c *RefCell[T]) Set(ctx context.Context, value T) error {
	return c.cell.Set(ctx, value)
}

// Replace stores value and returns the previous one. A unit that never held
// a value receives the initializer's value, or the zero value without one.
func (c *RefCell[T]) Replace(ctx context.Context, value T) (T, error) {
	var zero T
	t, ok := rtos.Current(ctx)
	if !ok {
		return zero, ErrNoTask
	}
	old := zero
	if v, ok := t.LocalLoad(&c.cell); ok {
		old = v.(T)
	} else if c.cell.init != nil {
		old = c.cell.init()
	}
	t.LocalStore(&c.cell, value)
	return old, nil
}

// Take removes and returns the calling unit's value, leaving the zero value
// behind. A unit that never held a value receives the zero value.
func (c *RefCell[T]) Take(ctx context.Context) (T, error) {
	var zero T
	t, ok := rtos.Current(ctx)
	if !ok {
		return zero, ErrNoTask
	}
	old := zero
	if v, ok := t.LocalLoad(&c.cell); ok {
		old = v.(T)
	}
	t.LocalStore(&c.cell, zero)
	return old, nil
}
