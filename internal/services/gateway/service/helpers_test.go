package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grasshoppermcp/gateway/internal/platform/logging"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/engine"
)

const localAddress = "http://127.0.0.1:0/"

func testRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	registry, err := capability.NewRegistry(capability.Module{
		Name: "test",
		Register: func(r *capability.Registry) error {
			return r.AddTool(capability.MustTool("ping", "liveness check", func(context.Context, struct{}) (string, error) {
				return "pong", nil
			}))
		},
	})
	require.NoError(t, err)
	return registry
}

func jsonrpcFactory(t *testing.T) engine.Factory {
	t.Helper()
	factory, err := engine.ByName(engine.KindJSONRPC, engine.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	return factory
}

// statusRecorder collects every transition delivered to the sink.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make([]State, 0, len(r.statuses))
	for _, status := range r.statuses {
		states = append(states, status.State)
	}
	return states
}

func newTestGateway(t *testing.T, opts ...Option) (*Gateway, *statusRecorder) {
	t.Helper()
	recorder := &statusRecorder{}
	base := []Option{
		WithRegistry(testRegistry(t)),
		WithEngineFactory(jsonrpcFactory(t)),
		WithLogger(logging.Discard()),
		WithStatusSink(recorder.record),
		WithStopWait(200 * time.Millisecond),
	}
	g, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g, recorder
}

func postJSON(t *testing.T, url, body string) (int, string) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

// controlledEngine runs until ctx ends or the test tells it to fail.
type controlledEngine struct {
	fail chan error
}

func (e *controlledEngine) Run(ctx context.Context, in io.ReadCloser, out io.WriteCloser) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-e.fail:
		return err
	}
}

// stubbornEngine ignores cancellation until released.
type stubbornEngine struct {
	release chan struct{}
	closed  chan struct{}
}

func (e *stubbornEngine) Run(context.Context, io.ReadCloser, io.WriteCloser) error {
	<-e.release
	return nil
}

func (e *stubbornEngine) Close() error {
	close(e.closed)
	return nil
}

var errEngineCrashed = errors.New("engine crashed")
