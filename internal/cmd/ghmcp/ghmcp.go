// Package ghmcp hosts the gateway process: it builds the canvas, the
// capability registry and the gateway, then runs until the process is
// asked to exit or the gateway fails.
package ghmcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	platformcmd "github.com/grasshoppermcp/gateway/internal/platform/cmd"
	"github.com/grasshoppermcp/gateway/internal/platform/logging"
	"github.com/grasshoppermcp/gateway/internal/platform/otel"
	"github.com/grasshoppermcp/gateway/internal/platform/timeouts"
	"github.com/grasshoppermcp/gateway/internal/services/canvas"
	"github.com/grasshoppermcp/gateway/internal/services/canvas/storage/sqlite"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/engine"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/service"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

const instructions = `Edit the canvas one component at a time: read grasshopper://current_document, ` +
	`add components with add_component, then wire them with connect_components.`

// server is one assembled gateway process.
type server struct {
	gateway *service.Gateway
	store   *sqlite.Store
	logger  *log.Logger
}

func newServer(ctx context.Context, cfg Config, logger *log.Logger) (*server, error) {
	store, err := sqlite.Open(ctx, cfg.CanvasDB)
	if err != nil {
		return nil, fmt.Errorf("open canvas store: %w", err)
	}
	s, err := assemble(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

func assemble(cfg Config, store *sqlite.Store, logger *log.Logger) (*server, error) {
	board, err := canvas.New(store,
		canvas.WithVersion(Version),
		canvas.WithDocumentName(cfg.DocumentName),
	)
	if err != nil {
		return nil, err
	}
	registry, err := capability.NewRegistry(board.Modules()...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	factory, err := engine.ByName(cfg.Engine, engine.Options{
		Logger:       logger.WithPrefix("engine"),
		Name:         platformcmd.ServiceGateway,
		Version:      Version,
		Instructions: instructions,
	})
	if err != nil {
		return nil, err
	}
	gw, err := service.New(
		service.WithEngineFactory(factory),
		service.WithRegistry(registry),
		service.WithLogger(logger),
		service.WithTracer(otel.Tracer()),
		service.WithStatusSink(logStatus(logger)),
		service.WithRequestTimeout(cfg.RequestTimeout),
		service.WithStopWait(cfg.StopWait),
		service.WithMaxConnections(cfg.MaxConnections),
	)
	if err != nil {
		return nil, fmt.Errorf("build gateway: %w", err)
	}
	return &server{gateway: gw, store: store, logger: logger}, nil
}

// logStatus reports every lifecycle transition.
func logStatus(logger *log.Logger) func(service.Status) {
	logger = logger.WithPrefix("status")
	return func(status service.Status) {
		if status.Err != nil {
			logger.Error("gateway state", "state", status.State, "address", status.Address, "err", status.Err)
			return
		}
		logger.Info("gateway state", "state", status.State, "address", status.Address)
	}
}

// start binds address, retrying bind failures with exponential backoff for
// up to maxElapsed. Other failures are returned at once.
func (s *server) start(ctx context.Context, address string, maxElapsed time.Duration) error {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if maxElapsed > 0 {
		policy = backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(100*time.Millisecond),
			backoff.WithMaxInterval(2*time.Second),
			backoff.WithMaxElapsedTime(maxElapsed),
		)
	}
	var lastErr error
	err := backoff.RetryNotify(
		func() error {
			err := s.gateway.Start(address)
			var bindErr *service.BindError
			if err != nil && !errors.As(err, &bindErr) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			lastErr = err
			s.logger.Warn("bind failed, retrying", "address", address, "in", next, "err", err)
		},
	)
	if err != nil && ctx.Err() != nil && lastErr != nil {
		return errors.Join(lastErr, ctx.Err())
	}
	return err
}

// run blocks until ctx ends or the gateway fails.
func (s *server) run(ctx context.Context) error {
	err := s.gateway.Wait(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		err = service.ErrNotRunning
	}
	return fmt.Errorf("gateway failed: %w", err)
}

func (s *server) close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	err := s.gateway.Shutdown(shutdownCtx)
	err = errors.Join(err, s.gateway.Close(), s.store.Close())
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Run serves the gateway until ctx ends. Log lines go to logOutput.
func Run(ctx context.Context, cfg Config, logOutput io.Writer) error {
	logger, err := logging.New(logging.Options{
		Output: logOutput,
		Prefix: platformcmd.ServiceGateway,
		Level:  cfg.LogLevel,
		Format: logging.Format(cfg.LogFormat),
	})
	if err != nil {
		return err
	}
	return platformcmd.RunWithTelemetryAndOptions(ctx, platformcmd.ServiceGateway,
		platformcmd.RunOptions{Logger: logger, Version: Version},
		func(ctx context.Context) error {
			s, err := newServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if err := s.start(ctx, cfg.Address, cfg.StartRetry); err != nil {
				return errors.Join(fmt.Errorf("start gateway: %w", err), s.close())
			}
			logger.Info("serving", "address", s.gateway.Address(), "engine", cfg.Engine, "canvas_db", cfg.CanvasDB)
			runErr := s.run(ctx)
			return errors.Join(runErr, s.close())
		})
}
