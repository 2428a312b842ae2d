package api_test

import (
	"context"
	"testing"
)

// testContext returns a context canceled when the test finishes,
// a stand-in for testContext(t) on Go toolchains older than 1.24.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
