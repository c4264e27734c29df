package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grasshoppermcp/gateway/internal/platform/logging"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/duplex"
)

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addOutput struct {
	Sum int `json:"sum"`
}

func testRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	registry, err := capability.NewRegistry(capability.Module{
		Name: "test",
		Register: func(r *capability.Registry) error {
			tools := []*capability.Tool{
				capability.MustTool("ping", "liveness check", func(context.Context, struct{}) (string, error) {
					return "pong", nil
				}),
				capability.MustTool("add", "adds two integers", func(_ context.Context, in addInput) (addOutput, error) {
					return addOutput{Sum: in.A + in.B}, nil
				}),
				capability.MustTool("fail", "always fails", func(context.Context, struct{}) (string, error) {
					return "", errors.New("canvas unavailable")
				}),
			}
			for _, tool := range tools {
				if err := r.AddTool(tool); err != nil {
					return err
				}
			}
			if err := r.AddResource(&capability.Resource{
				URI:      "grasshopper://status",
				Name:     "status",
				MIMEType: "application/json",
				Read:     func(context.Context) (string, error) { return `{"ok":true}`, nil },
			}); err != nil {
				return err
			}
			return r.AddPrompt(&capability.Prompt{
				Name:        "guide",
				Description: "connection guide",
				Arguments: []capability.PromptArgument{
					{Name: "source", Required: true, Suggestions: []string{"slider", "point", "panel"}},
				},
				Render: func(_ context.Context, args map[string]string) (string, error) {
					return "connect " + args["source"], nil
				},
			})
		},
	})
	require.NoError(t, err)
	return registry
}

func testOptions() Options {
	return Options{Logger: logging.Discard(), Name: "ghmcp-test", Version: "test"}
}

// harness runs an engine over a duplex pair for the life of the test.
type harness struct {
	t      *testing.T
	pair   *duplex.Pair
	cancel context.CancelFunc
	done   chan error
}

func startEngine(t *testing.T, e Engine) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	pair := duplex.NewPair()
	h := &harness{t: t, pair: pair, cancel: cancel, done: make(chan error, 1)}
	in, out := pair.EngineSide()
	go func() {
		h.done <- e.Run(ctx, in, out)
	}()
	t.Cleanup(func() {
		cancel()
		_ = pair.Close()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return h
}

func (h *harness) send(frame string) {
	h.t.Helper()
	require.NoError(h.t, h.pair.Requests.WriteFrame([]byte(frame)))
}

func (h *harness) receive() map[string]any {
	h.t.Helper()
	raw := h.receiveRaw()
	var msg map[string]any
	require.NoError(h.t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

func (h *harness) receiveRaw() string {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frame, err := h.pair.Responses.NextFrame(ctx)
	require.NoError(h.t, err)
	return string(frame)
}

func (h *harness) roundTrip(frame string) map[string]any {
	h.t.Helper()
	h.send(frame)
	return h.receive()
}
