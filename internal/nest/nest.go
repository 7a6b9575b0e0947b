// Package nest tracks how deeply conversions are nested inside containers
// such as archives and email attachments.
package nest

import (
	"context"
	"errors"
	"fmt"
)

// ErrTooDeep is returned when a container would exceed the nesting limit.
var ErrTooDeep = errors.New("nesting limit exceeded")

type depthKey struct{}

// Depth returns the nesting depth recorded in ctx. The top-level document
// is at depth 0.
func Depth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// Enter returns a context one level deeper than ctx, or ErrTooDeep when the
// new depth would exceed limit. A limit of zero or less disables the check.
func Enter(ctx context.Context, limit int) (context.Context, error) {
	d := Depth(ctx) + 1
	if limit > 0 && d > limit {
		return ctx, fmt.Errorf("%w: depth %d > %d", ErrTooDeep, d, limit)
	}
	return context.WithValue(ctx, depthKey{}, d), nil
}
