// Package test provides helpers shared by the tests of all packages
package test

import (
	"context"
	"testing"
	"time"

	"github.com/ridge/keystone/tlog"
)

// Context returns a context carrying a logger that writes through t.Log.
// The context is canceled when the test finishes.
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(tlog.WithLogger(context.Background(), tlog.NewForTesting(t)))
	t.Cleanup(cancel)
	return ctx
}

// ContextWithTimeout is Context with a deadline
func ContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(Context(t), timeout)
	t.Cleanup(cancel)
	return ctx
}
