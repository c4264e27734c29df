// Package otel wires OpenTelemetry tracing for gateway processes.
package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// EndpointEnv names the OTLP/HTTP collector URL.
	EndpointEnv = "GHMCP_OTEL_ENDPOINT"
	// EnabledEnv disables tracing when set to "false".
	EnabledEnv = "GHMCP_OTEL_ENABLED"
	// SampleRatioEnv sets the fraction of root traces sampled, 0 to 1.
	SampleRatioEnv = "GHMCP_OTEL_SAMPLE_RATIO"
)

// InstrumentationName scopes tracers created by gateway packages.
const InstrumentationName = "github.com/grasshoppermcp/gateway"

// exportSettings is the tracing configuration read from the environment.
type exportSettings struct {
	endpoint    string
	sampleRatio float64
}

// settingsFromEnv reports whether tracing is enabled and how to export.
func settingsFromEnv() (exportSettings, bool, error) {
	if strings.EqualFold(os.Getenv(EnabledEnv), "false") {
		return exportSettings{}, false, nil
	}
	endpoint := strings.TrimSpace(os.Getenv(EndpointEnv))
	if endpoint == "" {
		return exportSettings{}, false, nil
	}
	settings := exportSettings{endpoint: endpoint, sampleRatio: 1}
	if raw := strings.TrimSpace(os.Getenv(SampleRatioEnv)); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			return exportSettings{}, false, fmt.Errorf("%s must be a number between 0 and 1, got %q", SampleRatioEnv, raw)
		}
		settings.sampleRatio = ratio
	}
	return settings, true, nil
}

// Setup initialises OpenTelemetry tracing for the given service. Extra
// attributes are added to the trace resource.
//
// Tracing is opt-in: when GHMCP_OTEL_ENDPOINT is empty or GHMCP_OTEL_ENABLED
// is "false", Setup returns a no-op shutdown function and no global provider
// is registered.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName string, attrs ...attribute.KeyValue) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	settings, enabled, err := settingsFromEnv()
	if err != nil || !enabled {
		return noop, err
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(settings.endpoint),
	)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(append([]attribute.KeyValue{semconv.ServiceName(serviceName)}, attrs...)...),
	)
	if err != nil {
		return noop, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.sampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns the gateway tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
