// Package local provides task-local storage slots: values that behave like
// globals but are private to the scheduled unit accessing them.
//
// A slot is declared once, at package scope, and holds an independent value
// per rtos.Task. Storage lives in the owning unit's private map and is
// resolved from the unit's context, so cross-unit access is impossible by
// construction and no locking is involved. Values are initialized lazily on
// first access within a unit and die with the unit.
//
// Three slot flavors exist:
//
//   - Key: scoped access only. No post-init mutation escape hatch; a by-value
//     slot handed out by reference past the access scope has no safe
//     aliasing story, so the restriction is deliberate.
//   - Cell: single-value slot with Get (snapshot copy) and Set.
//   - RefCell: adds Replace and Take for move-style value exchange.
package local

import (
	"context"
	"errors"

	"github.com/vexgo/go-robot-runtime/rtos"
)

var (
	// ErrNoTask is returned when the context does not belong to a
	// scheduled unit.
	ErrNoTask = errors.New("local: context does not belong to a scheduled unit")

	// ErrUninitialized is returned by accessors that need a current value
	// on a slot that was never set and has no initializer.
	ErrUninitialized = errors.New("local: slot is uninitialized")
)

// Key is a plain task-local slot of T. Its identity is the *Key pointer, so
// every declared Key is a distinct slot.
type Key[T any] struct {
	init func() T
}

// NewKey declares a plain slot. The initializer runs once per unit, on that
// unit's first access. It must not be nil: a plain slot has no other way to
// obtain a value.
func NewKey[T any](init func() T) *Key[T] {
	if init == nil {
		panic("local: NewKey requires an initializer")
	}
	return &Key[T]{init: init}
}

// WithOrInit runs f with the calling unit's instance of the slot,
// initializing it first if this unit never touched it. The pointer must not
// be retained past f.
func (k *Key[T]) WithOrInit(ctx context.Context, f func(*T)) error {
	t, ok := rtos.Current(ctx)
	if !ok {
		return ErrNoTask
	}
	v, ok := t.LocalLoad(k)
	if !ok {
		p := new(T)
		*p = k.init()
		t.LocalStore(k, p)
		f(p)
		return nil
	}
	f(v.(*T))
	return nil
}
