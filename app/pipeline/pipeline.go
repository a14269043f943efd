// Package pipeline runs a fixed sequence of stages over an explicit state value.
//
// Each stage reads a snapshot of the state and returns a partial update. A reducer
// folds the update into a new state. State keys are write-once: a reducer built
// from Merge rejects an update that would overwrite a key another stage already set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrStateConflict = errors.New("state key already set")

// Slot holds one state key. The zero value is unset.
type Slot[T any] struct {
	value T
	set   bool
}

// Set returns a slot holding v.
func Set[T any](v T) Slot[T] {
	return Slot[T]{value: v, set: true}
}

func (s Slot[T]) Get() (T, bool) {
	return s.value, s.set
}

// Value returns the held value, or the zero value when unset.
func (s Slot[T]) Value() T {
	return s.value
}

func (s Slot[T]) IsSet() bool {
	return s.set
}

// Merge copies src into dst when src is set. It fails with ErrStateConflict when
// both are set.
func Merge[T any](key string, dst *Slot[T], src Slot[T]) error {
	if !src.set {
		return nil
	}
	if dst.set {
		return fmt.Errorf("%s: %w", key, ErrStateConflict)
	}
	*dst = src
	return nil
}

// Stage is one named step of a pipeline.
type Stage[S, U any] struct {
	Name string
	Run  func(ctx context.Context, state S) (U, error)
}

// Reducer folds an update into a state and returns the new state. It must not
// mutate its arguments.
type Reducer[S, U any] func(state S, update U) (S, error)

// Run executes stages strictly in order, folding each update into the state.
// The first stage or reducer error stops the run and is returned wrapped with the
// stage name. Context cancellation is checked between stages.
func Run[S, U any](ctx context.Context, initial S, reduce Reducer[S, U], stages ...Stage[S, U]) (S, error) {
	state := initial

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("%s: %w", stage.Name, err)
		}

		start := time.Now()

		update, err := stage.Run(ctx, state)
		if err != nil {
			return state, fmt.Errorf("%s: %w", stage.Name, err)
		}

		next, err := reduce(state, update)
		if err != nil {
			return state, fmt.Errorf("%s: %w", stage.Name, err)
		}
		state = next

		slog.Debug("Stage completed", "stage", stage.Name, "duration", time.Since(start))
	}

	return state, nil
}
