package service

import (
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/engine"
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithEngineFactory sets the factory that builds one engine per generation.
func WithEngineFactory(factory engine.Factory) Option {
	return func(g *Gateway) {
		g.factory = factory
	}
}

// WithRegistry sets the capability registry shared by every generation.
func WithRegistry(registry *capability.Registry) Option {
	return func(g *Gateway) {
		g.registry = registry
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *log.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTracer sets the tracer used for lifecycle and round-trip spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// WithStatusSink registers fn to observe every state transition. fn runs on
// a dedicated goroutine in transition order. It may call Start or Stop but
// must not call Close.
func WithStatusSink(fn func(Status)) Option {
	return func(g *Gateway) {
		g.sink = fn
	}
}

// WithRequestTimeout bounds each round trip through the engine.
func WithRequestTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.requestTimeout = d
		}
	}
}

// WithStopWait bounds how long a stop waits for the supervised tasks.
func WithStopWait(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.stopWait = d
		}
	}
}

// WithMaxConnections caps concurrent HTTP connections. Zero disables the cap.
func WithMaxConnections(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.maxConnections = n
		}
	}
}
