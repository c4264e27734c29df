package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/bridge"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/duplex"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/engine"
)

// Supervised task names.
const (
	taskAcceptLoop = "accept loop"
	taskEngine     = "engine"
)

// generation is one Start's worth of resources. Nothing in it is reused by
// the next generation.
type generation struct {
	address  Address
	listener net.Listener
	pair     *duplex.Pair
	engine   engine.Engine
	bridge   *bridge.Bridge
	logger   *log.Logger

	// scope is cancelled by teardown; the task group derives from it.
	scope  context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	done chan struct{}
	err  error
}

// launch starts both supervised tasks. The group context is cancelled as
// soon as either task fails, which closes the accept loop and releases
// waiting requests.
func (gen *generation) launch(groupCtx context.Context) {
	in, out := gen.pair.EngineSide()
	gen.group.Go(gen.supervised(taskAcceptLoop, func() error {
		return gen.bridge.Serve(groupCtx, gen.listener)
	}))
	gen.group.Go(gen.supervised(taskEngine, func() error {
		return gen.engine.Run(groupCtx, in, out)
	}))
}

// supervised turns a return while the scope is still live into an
// ErrUnexpectedExit failure naming the task.
func (gen *generation) supervised(name string, run func() error) func() error {
	return func() error {
		err := run()
		if gen.scope.Err() != nil {
			if err != nil && !errors.Is(err, context.Canceled) {
				gen.logger.Debug("task exited during stop", "task", name, "err", err)
			}
			return nil
		}
		if err == nil {
			return fmt.Errorf("%s: %w", name, ErrUnexpectedExit)
		}
		return fmt.Errorf("%s: %w: %w", name, ErrUnexpectedExit, err)
	}
}

// wait blocks until both tasks have returned and records the first failure.
func (gen *generation) wait() error {
	gen.err = gen.group.Wait()
	close(gen.done)
	return gen.err
}

// teardown cancels the scope, waits for the tasks at most stopWait and
// releases the engine, the pair and the listener. It returns ctx.Err() when
// ctx ends before the wait does.
func (gen *generation) teardown(ctx context.Context, stopWait time.Duration) error {
	gen.cancel()

	timer := time.NewTimer(stopWait)
	defer timer.Stop()
	var ctxErr error
	select {
	case <-gen.done:
	case <-timer.C:
		gen.logger.Warn("supervised tasks still running after stop wait", "wait", stopWait)
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}

	if closer, ok := gen.engine.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			gen.logger.Debug("close engine", "err", err)
		}
	}
	if err := gen.pair.Close(); err != nil {
		gen.logger.Debug("close duplex pair", "err", err)
	}
	if err := gen.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		gen.logger.Debug("close listener", "err", err)
	}
	return ctxErr
}
