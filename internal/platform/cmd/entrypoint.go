// Package cmd holds entrypoint helpers shared by gateway commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/grasshoppermcp/gateway/internal/platform/config"
	"github.com/grasshoppermcp/gateway/internal/platform/otel"
	"github.com/grasshoppermcp/gateway/internal/platform/timeouts"
)

// ServiceGateway names the gateway process in telemetry and logs.
const ServiceGateway = "ghmcp"

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout bounds the telemetry flush. Defaults to timeouts.Shutdown.
	ShutdownTimeout time.Duration
	// Logger receives telemetry failures. Defaults to log.Default().
	Logger *log.Logger
	// Version is reported as the service version on every span.
	Version string
}

// ParseConfig layers environment defaults and then an optional config file
// into cfg. Flags are applied by the caller afterwards.
func ParseConfig[T any](cfg *T, configFile string) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if err := config.ParseEnv(cfg); err != nil {
		return err
	}
	return config.LoadFile(configFile, cfg)
}

// RunWithTelemetry runs fn with tracing configured for service.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions runs fn with tracing configured for service and
// flushes spans once fn returns, whatever it returned.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return errors.New("service name is required")
	case run == nil:
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}

	var attrs []attribute.KeyValue
	if version := strings.TrimSpace(options.Version); version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}
	flush, err := otel.Setup(ctx, service, attrs...)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	runErr := run(ctx)

	timeout := options.ShutdownTimeout
	if timeout <= 0 {
		timeout = timeouts.Shutdown
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := flush(flushCtx); err != nil {
		logger.Warn("flush telemetry", "service", service, "err", err)
	}
	return runErr
}
