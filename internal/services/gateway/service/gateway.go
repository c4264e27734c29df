package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/grasshoppermcp/gateway/internal/platform/otel"
	"github.com/grasshoppermcp/gateway/internal/platform/timeouts"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/bridge"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/duplex"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/engine"
)

// DefaultMaxConnections caps concurrent HTTP connections per generation.
const DefaultMaxConnections = 64

// Gateway is the lifecycle controller. The zero value is not usable; call New.
type Gateway struct {
	factory        engine.Factory
	registry       *capability.Registry
	logger         *log.Logger
	tracer         trace.Tracer
	sink           func(Status)
	requestTimeout time.Duration
	stopWait       time.Duration
	maxConnections int

	// mu serializes Start, Stop and Close. It is never taken by the
	// request path.
	mu     sync.Mutex
	gen    *generation
	last   *generation
	closed bool

	state   atomic.Int32
	bound   atomic.Pointer[Address]
	errMu   sync.Mutex
	lastErr error
	status  *statusQueue
}

// New returns a stopped gateway.
func New(opts ...Option) (*Gateway, error) {
	g := &Gateway{
		logger:         log.Default(),
		tracer:         otel.Tracer(),
		requestTimeout: timeouts.Request,
		stopWait:       timeouts.StopWait,
		maxConnections: DefaultMaxConnections,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.factory == nil {
		return nil, errors.New("engine factory is required")
	}
	if g.registry == nil {
		return nil, errors.New("capability registry is required")
	}
	g.logger = g.logger.WithPrefix("gateway")
	g.state.Store(int32(StateStopped))
	g.status = newStatusQueue(g.sink)
	return g, nil
}

// State returns the current lifecycle state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsListening reports whether the gateway is accepting requests.
func (g *Gateway) IsListening() bool {
	return g.State() == StateRunning
}

// Address returns the bound URI prefix, or "" when nothing is bound.
func (g *Gateway) Address() string {
	addr := g.bound.Load()
	if addr == nil {
		return ""
	}
	return addr.String()
}

// LastError returns the error behind the most recent StateError, or nil.
func (g *Gateway) LastError() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.lastErr
}

// Start binds address and launches a new generation. A live generation is
// stopped first. A bind failure leaves the gateway in StateError and is
// returned as a *BindError.
func (g *Gateway) Start(address string) error {
	addr, err := ParseAddress(address)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}

	ctx, span := g.tracer.Start(context.Background(), "gateway.start",
		trace.WithAttributes(attribute.String("gateway.address", addr.String())))
	defer span.End()

	switch g.State() {
	case StateError:
		g.releaseLocked(ctx)
	case StateStopped:
	default:
		span.AddEvent("restart")
		_ = g.stopLocked(ctx)
	}

	if err := g.startLocked(addr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.AddEvent("running")
	return nil
}

func (g *Gateway) startLocked(addr Address) error {
	g.setLastError(nil)
	g.transition(StateStarting, nil)

	ln, err := net.Listen("tcp", addr.ListenAddr())
	if err != nil {
		bindErr := &BindError{Address: addr.String(), Err: err}
		g.setLastError(bindErr)
		g.transition(StateError, bindErr)
		return bindErr
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		addr = addr.WithPort(tcpAddr.Port)
	}
	if g.maxConnections > 0 {
		ln = netutil.LimitListener(ln, g.maxConnections)
	}

	pair := duplex.NewPair()
	eng, err := g.factory(g.registry)
	if err != nil {
		_ = ln.Close()
		_ = pair.Close()
		err = fmt.Errorf("build engine: %w", err)
		g.setLastError(err)
		g.transition(StateError, err)
		return err
	}

	scope, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(scope)
	br, err := bridge.New(groupCtx, pair, bridge.Options{
		Path:    addr.Path,
		Timeout: g.requestTimeout,
		Logger:  g.logger.WithPrefix("bridge"),
		Tracer:  g.tracer,
	})
	if err != nil {
		cancel()
		_ = ln.Close()
		_ = pair.Close()
		err = fmt.Errorf("build bridge: %w", err)
		g.setLastError(err)
		g.transition(StateError, err)
		return err
	}

	gen := &generation{
		address:  addr,
		listener: ln,
		pair:     pair,
		engine:   eng,
		bridge:   br,
		logger:   g.logger,
		scope:    scope,
		cancel:   cancel,
		group:    group,
		done:     make(chan struct{}),
	}
	g.gen = gen
	g.bound.Store(&addr)
	gen.launch(groupCtx)
	go g.supervise(gen)

	g.logger.Info("gateway running", "address", addr.String())
	g.transition(StateRunning, nil)
	return nil
}

// supervise moves the gateway to StateError when gen's tasks fail while it
// is still the live generation.
func (g *Gateway) supervise(gen *generation) {
	err := gen.wait()
	if err == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen || g.State() != StateRunning {
		return
	}
	gen.cancel()
	g.bound.Store(nil)
	g.logger.Error("generation failed", "err", err)
	g.setLastError(err)
	g.transition(StateError, err)
}

// Stop tears down the live generation and waits for it. It is idempotent
// and never fails.
func (g *Gateway) Stop() {
	_ = g.Shutdown(context.Background())
}

// Shutdown is Stop bounded by ctx. It returns ctx.Err() only when ctx ends
// before the stop wait does; the gateway is stopped either way.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopLocked(ctx)
}

func (g *Gateway) stopLocked(ctx context.Context) error {
	switch g.State() {
	case StateStopped:
		return nil
	case StateError:
		err := g.releaseLocked(ctx)
		g.transition(StateStopped, nil)
		return err
	}

	ctx, span := g.tracer.Start(ctx, "gateway.stop")
	defer span.End()

	g.transition(StateStopping, nil)
	err := g.releaseLocked(ctx)
	g.logger.Info("gateway stopped")
	g.transition(StateStopped, nil)
	return err
}

// releaseLocked tears down whatever generation remains without a state
// transition.
func (g *Gateway) releaseLocked(ctx context.Context) error {
	gen := g.gen
	g.gen = nil
	g.bound.Store(nil)
	if gen == nil {
		return nil
	}
	g.last = gen
	return gen.teardown(ctx, g.stopWait)
}

// Wait blocks until the live generation ends, or reports how the most recent
// one ended. It returns the supervision failure, nil after a clean stop, the
// error of a failed Start, or ErrNotRunning when the gateway was never started.
func (g *Gateway) Wait(ctx context.Context) error {
	g.mu.Lock()
	gen := g.gen
	if gen == nil {
		if g.State() == StateError {
			// Start failed before a generation went live.
			err := g.LastError()
			g.mu.Unlock()
			return err
		}
		gen = g.last
	}
	g.mu.Unlock()
	if gen == nil {
		return ErrNotRunning
	}
	select {
	case <-gen.done:
		return gen.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the gateway and delivers pending status transitions. Start
// fails with ErrClosed afterwards.
func (g *Gateway) Close() error {
	g.mu.Lock()
	err := g.stopLocked(context.Background())
	g.closed = true
	g.mu.Unlock()

	g.status.close()
	return err
}

func (g *Gateway) setLastError(err error) {
	g.errMu.Lock()
	g.lastErr = err
	g.errMu.Unlock()
}

func (g *Gateway) transition(state State, err error) {
	g.state.Store(int32(state))
	g.status.publish(Status{
		State:   state,
		Address: g.Address(),
		Err:     err,
		At:      time.Now(),
	})
}
