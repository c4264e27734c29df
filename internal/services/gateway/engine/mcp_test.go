package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const initializeRequest = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"engine-test","version":"1.0.0"}}}`

func newMCPHarness(t *testing.T) *harness {
	t.Helper()
	e, err := NewMCP(testRegistry(t), testOptions())
	require.NoError(t, err)
	h := startEngine(t, e)

	resp := h.roundTrip(initializeRequest)
	require.Equal(t, float64(1), resp["id"])
	serverInfo := resp["result"].(map[string]any)["serverInfo"].(map[string]any)
	require.Equal(t, "ghmcp-test", serverInfo["name"])
	h.send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	return h
}

func TestMCPListsRegistryCapabilities(t *testing.T) {
	h := newMCPHarness(t)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	tools := resp["result"].(map[string]any)["tools"].([]any)
	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	require.ElementsMatch(t, []string{"add", "fail", "ping"}, names)

	resp = h.roundTrip(`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`)
	require.Len(t, resp["result"].(map[string]any)["resources"], 1)

	resp = h.roundTrip(`{"jsonrpc":"2.0","id":4,"method":"prompts/list"}`)
	require.Len(t, resp["result"].(map[string]any)["prompts"], 1)
}

func TestMCPToolCall(t *testing.T) {
	h := newMCPHarness(t)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"add","arguments":{"a":1,"b":4}}}`)
	result := resp["result"].(map[string]any)
	require.Equal(t, map[string]any{"sum": float64(5)}, result["structuredContent"])
	require.NotEqual(t, true, result["isError"])

	resp = h.roundTrip(`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"fail","arguments":{}}}`)
	result = resp["result"].(map[string]any)
	require.Equal(t, true, result["isError"])
	content := result["content"].([]any)[0].(map[string]any)
	require.Equal(t, "canvas unavailable", content["text"])
}

func TestMCPReadResourceAndPrompt(t *testing.T) {
	h := newMCPHarness(t)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":7,"method":"resources/read","params":{"uri":"grasshopper://status"}}`)
	contents := resp["result"].(map[string]any)["contents"].([]any)[0].(map[string]any)
	require.Equal(t, `{"ok":true}`, contents["text"])
	require.Equal(t, "application/json", contents["mimeType"])

	resp = h.roundTrip(`{"jsonrpc":"2.0","id":8,"method":"prompts/get","params":{"name":"guide","arguments":{"source":"point"}}}`)
	messages := resp["result"].(map[string]any)["messages"].([]any)
	text := messages[0].(map[string]any)["content"].(map[string]any)["text"]
	require.Equal(t, "connect point", text)
}

func TestMCPCompletesPromptArguments(t *testing.T) {
	h := newMCPHarness(t)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":9,"method":"completion/complete","params":{"ref":{"type":"ref/prompt","name":"guide"},"argument":{"name":"source","value":"p"}}}`)
	completion := resp["result"].(map[string]any)["completion"].(map[string]any)
	require.Equal(t, []any{"point", "panel"}, completion["values"])
}

func TestMCPPingBeforeInitialize(t *testing.T) {
	e, err := NewMCP(testRegistry(t), testOptions())
	require.NoError(t, err)
	h := startEngine(t, e)

	resp := h.roundTrip(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, float64(1), resp["id"])
	require.Equal(t, map[string]any{}, resp["result"])
}

func TestMCPCloseWithoutSession(t *testing.T) {
	e, err := NewMCP(testRegistry(t), testOptions())
	require.NoError(t, err)
	require.NoError(t, e.Close())
}
