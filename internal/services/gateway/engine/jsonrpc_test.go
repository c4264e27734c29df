package engine

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/stretchr/testify/require"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/duplex"
)

func newJSONRPCHarness(t *testing.T) *harness {
	t.Helper()
	e, err := NewJSONRPC(testRegistry(t), testOptions())
	require.NoError(t, err)
	return startEngine(t, e)
}

func TestJSONRPCPing(t *testing.T) {
	h := newJSONRPCHarness(t)

	h.send(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, h.receiveRaw())
}

func TestJSONRPCToolCallEchoesStringID(t *testing.T) {
	h := newJSONRPCHarness(t)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":"req-7","method":"add","params":{"a":2,"b":3}}`)
	require.Equal(t, "req-7", resp["id"])
	require.Equal(t, map[string]any{"sum": float64(5)}, resp["result"])
}

func TestJSONRPCErrors(t *testing.T) {
	tests := []struct {
		name    string
		request string
		code    float64
	}{
		{name: "unknown method", request: `{"jsonrpc":"2.0","id":2,"method":"nope"}`, code: jsonrpc.CodeMethodNotFound},
		{name: "invalid params", request: `{"jsonrpc":"2.0","id":2,"method":"add","params":{"a":"x"}}`, code: jsonrpc.CodeInvalidParams},
		{name: "tool failure", request: `{"jsonrpc":"2.0","id":2,"method":"fail"}`, code: CodeToolFailed},
		{name: "missing resource", request: `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"grasshopper://none"}}`, code: jsonrpc.CodeInvalidParams},
		{name: "prompt missing argument", request: `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"guide"}}`, code: jsonrpc.CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newJSONRPCHarness(t)
			resp := h.roundTrip(tt.request)

			require.Equal(t, float64(2), resp["id"])
			require.NotContains(t, resp, "result")
			rpcErr, ok := resp["error"].(map[string]any)
			require.True(t, ok, "expected error object, got %v", resp)
			require.Equal(t, tt.code, rpcErr["code"])
		})
	}
}

func TestJSONRPCParseErrorHasNullID(t *testing.T) {
	h := newJSONRPCHarness(t)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":`)
	require.Contains(t, resp, "id")
	require.Nil(t, resp["id"])
	require.Equal(t, float64(jsonrpc.CodeParseError), resp["error"].(map[string]any)["code"])
}

func TestJSONRPCNotificationsProduceNoResponse(t *testing.T) {
	h := newJSONRPCHarness(t)

	h.send(`{"jsonrpc":"2.0","method":"ping"}`)
	resp := h.roundTrip(`{"jsonrpc":"2.0","id":9,"method":"ping"}`)
	require.Equal(t, float64(9), resp["id"], "the notification must not have produced a frame")
}

func TestJSONRPCDiscoverAndBuiltins(t *testing.T) {
	h := newJSONRPCHarness(t)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":1,"method":"rpc.discover"}`)
	result := resp["result"].(map[string]any)
	require.Len(t, result["tools"], 3)
	require.Len(t, result["resources"], 1)
	require.Len(t, result["prompts"], 1)

	resp = h.roundTrip(`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"grasshopper://status"}}`)
	require.Equal(t, `{"ok":true}`, resp["result"].(map[string]any)["text"])

	resp = h.roundTrip(`{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"guide","arguments":{"source":"slider"}}}`)
	require.Equal(t, "connect slider", resp["result"].(map[string]any)["text"])
}

func TestJSONRPCRunEndsOnInputEOF(t *testing.T) {
	e, err := NewJSONRPC(testRegistry(t), testOptions())
	require.NoError(t, err)
	pair := duplex.NewPair()
	in, out := pair.EngineSide()

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background(), in, out) }()
	require.NoError(t, pair.Requests.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not observe EOF")
	}
}

func TestJSONRPCRunEndsOnCancel(t *testing.T) {
	e, err := NewJSONRPC(testRegistry(t), testOptions())
	require.NoError(t, err)
	pair := duplex.NewPair()
	in, out := pair.EngineSide()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, in, out) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not observe cancellation")
	}
}

func TestByName(t *testing.T) {
	for _, kind := range []string{"", "mcp", "MCP", "jsonrpc"} {
		factory, err := ByName(kind, testOptions())
		require.NoError(t, err)
		e, err := factory(testRegistry(t))
		require.NoError(t, err)
		require.NotNil(t, e)
	}

	_, err := ByName("grpc", testOptions())
	require.Error(t, err)
}
