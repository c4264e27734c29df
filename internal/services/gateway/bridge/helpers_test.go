package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grasshoppermcp/gateway/internal/platform/logging"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/duplex"
)

// respondFunc maps one request frame to the frames the fake engine writes back.
type respondFunc func(frame []byte) []string

// fakeEngine answers request frames on pair until the test ends.
func fakeEngine(t *testing.T, pair *duplex.Pair, respond respondFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			frame, err := pair.Requests.NextFrame(ctx)
			if err != nil {
				return
			}
			for _, out := range respond(frame) {
				if err := pair.Responses.WriteFrame([]byte(out)); err != nil {
					return
				}
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// echoResult answers every call with {"result":"<method>"} and the same id.
func echoResult(frame []byte) []string {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(frame, &req); err != nil || len(req.ID) == 0 {
		return nil
	}
	return []string{`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":"` + req.Method + `"}`}
}

func newTestBridge(t *testing.T, scope context.Context, opts Options) (*Bridge, *duplex.Pair) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	pair := duplex.NewPair()
	t.Cleanup(func() { _ = pair.Close() })
	b, err := New(scope, pair, opts)
	require.NoError(t, err)
	return b, pair
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not complete")
	}
	return rec
}

type envelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result"`
	Error   *struct {
		Code    int64  `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	require.Equal(t, "2.0", env.JSONRPC)
	return env
}
