package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pendingRequest is one HTTP request in flight through the bridge.
type pendingRequest struct {
	arrived time.Time
	body    []byte
	// id is the decoded request id; rawID is its JSON value for envelopes.
	id     jsonrpc.ID
	rawID  any
	method string
	call   bool
	sink   *responseSink
}

// ServeHTTP implements http.Handler.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := b.tracer.Start(r.Context(), "gateway.roundtrip", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	req := &pendingRequest{arrived: time.Now(), sink: newResponseSink(w)}
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("request handler panicked", "panic", rec)
			req.sink.fail(req.rawID, errInternal)
			span.SetStatus(codes.Error, "panic")
		}
		span.SetAttributes(
			attribute.String("rpc.method", req.method),
			attribute.Int("http.response.status_code", req.sink.status),
		)
		b.logger.Debug("request complete",
			"method", req.method,
			"status", req.sink.status,
			"elapsed", time.Since(req.arrived),
		)
	}()

	if rpcErr := b.readRequest(w, r, req); rpcErr != nil {
		req.sink.fail(req.rawID, rpcErr)
		span.SetStatus(codes.Error, rpcErr.Message)
		return
	}
	if req.rawID != nil {
		span.SetAttributes(attribute.String("rpc.jsonrpc.request_id", requestIDString(req.rawID)))
	}

	if rpcErr := b.roundTrip(ctx, req); rpcErr != nil {
		if req.sink.fail(req.rawID, rpcErr) {
			span.SetStatus(codes.Error, rpcErr.Message)
		}
	}
}

// readRequest validates the HTTP request and decodes its JSON-RPC body.
func (b *Bridge) readRequest(w http.ResponseWriter, r *http.Request, req *pendingRequest) *RPCError {
	if !strings.HasPrefix(r.URL.Path, b.path) && r.URL.Path+"/" != b.path {
		return errNotFound
	}
	if r.Method != http.MethodPost {
		return errInvalidRequest
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.maxBodyBytes))
	if err != nil {
		b.logger.Debug("read request body", "err", err)
		return errInvalidRequest
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errInvalidRequest
	}

	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		b.logger.Debug("undecodable request", "err", err)
		return errInvalidRequest
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return errInvalidRequest
	}
	req.body = compact.Bytes()

	switch m := msg.(type) {
	case *jsonrpc.Request:
		req.method = m.Method
		req.call = m.IsCall()
		if req.call {
			req.id = m.ID
			req.rawID = m.ID.Raw()
		}
	case *jsonrpc.Response:
		// Client replies to engine-originated requests are forwarded as-is.
		req.method = "response"
	}
	return nil
}

// roundTrip writes the request frame and, for calls, relays the matching
// response frame. It returns the error to report, or nil once the sink is
// complete.
func (b *Bridge) roundTrip(ctx context.Context, req *pendingRequest) *RPCError {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(b.scope, cancel)
	defer stop()

	if err := b.token.Lock(ctx); err != nil {
		return b.cancelled(ctx, req)
	}
	defer b.token.Unlock()

	if err := b.pair.Requests.WriteFrame(req.body); err != nil {
		if b.scope.Err() != nil {
			return errStopping
		}
		b.logger.Error("write request frame", "method", req.method, "err", err)
		return errInternal
	}

	if !req.call {
		req.sink.complete(http.StatusAccepted, nil)
		return nil
	}

	delivered := false
	defer func() {
		if !delivered && b.scope.Err() == nil {
			b.abandoned[req.id]++
		}
	}()

	waitCtx, cancelWait := context.WithTimeout(ctx, b.timeout)
	defer cancelWait()
	for {
		frame, err := b.pair.Responses.NextFrame(waitCtx)
		if err != nil {
			switch {
			case b.scope.Err() != nil:
				return errStopping
			case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
				b.logger.Warn("request timed out", "method", req.method, "timeout", b.timeout)
				return errTimeout
			case ctx.Err() != nil:
				return b.cancelled(ctx, req)
			default:
				b.logger.Debug("response channel ended", "method", req.method, "err", err)
				return errNoResponse
			}
		}
		if !b.matches(req, frame) {
			continue
		}
		delivered = true
		req.sink.complete(http.StatusOK, frame)
		return nil
	}
}

// matches reports whether frame answers req. Engine-originated requests and
// notifications are skipped, as are stale responses left over from earlier
// abandoned calls. The engine answers in order, so the first response carrying
// an abandoned id belongs to the abandoned call even when req reuses that id.
// The caller must hold the token.
func (b *Bridge) matches(req *pendingRequest, frame []byte) bool {
	msg, err := jsonrpc.DecodeMessage(frame)
	if err != nil {
		// Error responses with a null id cannot be matched; they answer the
		// only request in flight.
		return true
	}
	switch m := msg.(type) {
	case *jsonrpc.Request:
		b.logger.Debug("skipping engine-originated frame", "method", m.Method)
		return false
	case *jsonrpc.Response:
		if n := b.abandoned[m.ID]; n > 0 {
			if n == 1 {
				delete(b.abandoned, m.ID)
			} else {
				b.abandoned[m.ID] = n - 1
			}
			b.logger.Debug("discarding abandoned response", "id", m.ID.Raw())
			return false
		}
		if m.ID != req.id {
			b.logger.Debug("discarding stale response", "id", m.ID.Raw(), "want", req.rawID)
			return false
		}
	}
	return true
}

func (b *Bridge) cancelled(ctx context.Context, req *pendingRequest) *RPCError {
	if b.scope.Err() != nil {
		return errStopping
	}
	b.logger.Debug("client went away", "method", req.method, "err", context.Cause(ctx))
	return errInternal
}

func requestIDString(raw any) string {
	data, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return strings.Trim(string(data), `"`)
}
