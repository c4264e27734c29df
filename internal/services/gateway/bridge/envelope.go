package bridge

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Error messages written by the bridge itself.
const (
	MessageInvalidRequest = "Invalid request"
	MessageNoResponse     = "No response received"
	MessageTimeout        = "Request timeout"
	MessageStopping       = "Gateway stopping"
	MessageInternal       = "Internal error"
)

// RPCError is a JSON-RPC error produced by the bridge.
type RPCError struct {
	Status  int
	Code    int64
	Message string
}

func (e *RPCError) Error() string {
	return e.Message
}

var (
	errInvalidRequest = &RPCError{Status: http.StatusBadRequest, Code: jsonrpc.CodeInvalidRequest, Message: MessageInvalidRequest}
	errNotFound       = &RPCError{Status: http.StatusNotFound, Code: jsonrpc.CodeInvalidRequest, Message: MessageInvalidRequest}
	errNoResponse     = &RPCError{Status: http.StatusOK, Code: jsonrpc.CodeInternalError, Message: MessageNoResponse}
	errTimeout        = &RPCError{Status: http.StatusOK, Code: jsonrpc.CodeInternalError, Message: MessageTimeout}
	errStopping       = &RPCError{Status: http.StatusServiceUnavailable, Code: jsonrpc.CodeInternalError, Message: MessageStopping}
	errInternal       = &RPCError{Status: http.StatusInternalServerError, Code: jsonrpc.CodeInternalError, Message: MessageInternal}
)

type errorBody struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	JSONRPC string    `json:"jsonrpc"`
	Error   errorBody `json:"error"`
	ID      any       `json:"id"`
}

// encodeError renders the error envelope. id is the raw request id, or nil.
func encodeError(id any, rpcErr *RPCError) []byte {
	data, err := json.Marshal(errorEnvelope{
		JSONRPC: "2.0",
		Error:   errorBody{Code: rpcErr.Code, Message: rpcErr.Message},
		ID:      id,
	})
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"},"id":null}`)
	}
	return data
}

// responseSink completes an HTTP response exactly once.
type responseSink struct {
	w      http.ResponseWriter
	once   sync.Once
	status int
}

func newResponseSink(w http.ResponseWriter) *responseSink {
	return &responseSink{w: w}
}

func (s *responseSink) complete(status int, body []byte) bool {
	written := false
	s.once.Do(func() {
		written = true
		s.status = status
		if body != nil {
			s.w.Header().Set("Content-Type", "application/json")
		}
		s.w.WriteHeader(status)
		if body != nil {
			_, _ = s.w.Write(body)
		}
	})
	return written
}

func (s *responseSink) fail(id any, rpcErr *RPCError) bool {
	return s.complete(rpcErr.Status, encodeError(id, rpcErr))
}

func (s *responseSink) completed() bool {
	return s.status != 0
}
