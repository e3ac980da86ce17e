package state

import "context"

// Cell holds a single value of type T behind the same serialization guarantee
// as Store, without requiring string keys.
type Cell[T any] struct {
	guard chan struct{}
	value T
}

// NewCell creates a cell holding the initial value.
func NewCell[T any](initial T) *Cell[T] {
	c := &Cell[T]{guard: make(chan struct{}, 1)}
	c.value = initial
	return c
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.guard <- struct{}{}
	defer func() { <-c.guard }()
	return c.value
}

// Set replaces the current value.
func (c *Cell[T]) Set(value T) {
	c.guard <- struct{}{}
	defer func() { <-c.guard }()
	c.value = value
}

// Update atomically reads the value, applies transform and writes the result.
// No other cell operation interleaves between the read and the write, even
// when transform suspends. A transform error leaves the value unchanged.
func (c *Cell[T]) Update(ctx context.Context, transform func(ctx context.Context, current T) (T, error)) error {
	select {
	case c.guard <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.guard }()
	next, err := transform(ctx, c.value)
	if err != nil {
		return err
	}
	c.value = next
	return nil
}
