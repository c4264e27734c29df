// Package bridge translates HTTP POST requests into frames on a duplex pair
// and relays the engine's response frames back to the HTTP caller.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"go.opentelemetry.io/otel/trace"

	"github.com/grasshoppermcp/gateway/internal/platform/otel"
	"github.com/grasshoppermcp/gateway/internal/platform/timeouts"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/duplex"
)

// DefaultMaxBodyBytes caps the size of one request body.
const DefaultMaxBodyBytes int64 = 4 << 20

// Options configures a Bridge.
type Options struct {
	// Path is the URL path prefix served. Defaults to "/".
	Path string
	// Timeout bounds the wait for a response frame. Defaults to timeouts.Request.
	Timeout time.Duration
	// IdleTimeout closes idle keep-alive connections. Defaults to timeouts.Idle.
	IdleTimeout  time.Duration
	MaxBodyBytes int64
	Logger       *log.Logger
	Tracer       trace.Tracer
}

// Bridge is the HTTP side of one gateway generation.
type Bridge struct {
	scope        context.Context
	pair         *duplex.Pair
	token        *requestToken
	path         string
	timeout      time.Duration
	idleTimeout  time.Duration
	maxBodyBytes int64
	logger       *log.Logger
	tracer       trace.Tracer

	// abandoned counts calls written to the engine whose response never
	// reached a caller, keyed by request id. Guarded by token.
	abandoned map[jsonrpc.ID]int
}

// New returns a bridge writing to pair. scope is the generation scope: when
// it ends, waiting requests fail with a stopping error.
func New(scope context.Context, pair *duplex.Pair, opts Options) (*Bridge, error) {
	if scope == nil {
		return nil, errors.New("generation scope is required")
	}
	if pair == nil {
		return nil, errors.New("duplex pair is required")
	}
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = timeouts.Request
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = timeouts.Idle
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer()
	}
	return &Bridge{
		scope:        scope,
		pair:         pair,
		token:        newRequestToken(),
		path:         path,
		timeout:      timeout,
		idleTimeout:  idle,
		maxBodyBytes: maxBody,
		logger:       logger,
		tracer:       tracer,
		abandoned:    make(map[jsonrpc.ID]int),
	}, nil
}

// Serve runs the accept loop on ln until ctx ends. Each request is handled
// on its own goroutine. A closed listener after ctx ends is a normal
// shutdown and returns nil; any earlier exit is returned as an error.
func (b *Bridge) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           b,
		ReadHeaderTimeout: timeouts.ReadHeader,
		IdleTimeout:       b.idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return b.scope },
		ErrorLog:          b.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
	}

	stop := context.AfterFunc(ctx, func() {
		if err := srv.Close(); err != nil {
			b.logger.Debug("close http server", "err", err)
		}
	})
	defer stop()

	err := srv.Serve(ln)
	if ctx.Err() != nil && (errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed)) {
		return nil
	}
	if err == nil {
		err = http.ErrServerClosed
	}
	return fmt.Errorf("accept loop: %w", err)
}
