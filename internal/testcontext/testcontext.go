// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

// Package testcontext provides contexts for tests.
package testcontext

import (
	"context"
	"testing"
	"time"

	"zombiezen.com/go/log/testlog"
)

// New returns a context that associates the test logger with the test,
// is canceled when the test finishes,
// and obeys the test's deadline if present.
func New(tb testing.TB) (context.Context, context.CancelFunc) {
	ctx := tb.Context()
	cancel := context.CancelFunc(func() {})
	if d, ok := deadline(tb); ok {
		// Leave some time for cleanup to report failures.
		ctx, cancel = context.WithDeadline(ctx, d.Add(-time.Second))
	}
	ctx = testlog.WithTB(ctx, tb)
	return ctx, cancel
}

func deadline(x any) (deadline time.Time, ok bool) {
	d, ok := x.(interface {
		Deadline() (deadline time.Time, ok bool)
	})
	if !ok {
		return time.Time{}, false
	}
	return d.Deadline()
}
