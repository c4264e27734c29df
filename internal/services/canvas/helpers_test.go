package canvas

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grasshoppermcp/gateway/internal/services/canvas/storage/sqlite"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return "c" + strconv.FormatInt(n.Add(1), 10)
	}
}

func newTestCanvas(t *testing.T, opts ...Option) *Canvas {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
		WithVersion("test"),
	}
	c, err := New(store, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func addComponent(t *testing.T, c *Canvas, componentType, value string) ComponentView {
	t.Helper()
	view, err := c.AddComponent(context.Background(), AddComponentRequest{Type: componentType, X: 10, Y: 20, Value: value})
	require.NoError(t, err)
	return view
}

func intPtr(v int) *int { return &v }
