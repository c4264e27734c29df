package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grasshoppermcp/gateway/internal/platform/logging"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
)

// MCP serves the Model Context Protocol over the duplex pair using the MCP
// SDK. Each MCP engine hosts exactly one session.
type MCP struct {
	server *mcp.Server
	logger *log.Logger

	mu      sync.Mutex
	session *mcp.ServerSession
}

// NewMCP builds an MCP server exposing every capability in registry.
func NewMCP(registry *capability.Registry, opts Options) (*MCP, error) {
	if registry == nil {
		return nil, fmt.Errorf("capability registry is required")
	}
	opts = opts.withDefaults()
	logger := opts.Logger.WithPrefix("mcp")

	server := mcp.NewServer(&mcp.Implementation{
		Name:    opts.Name,
		Version: opts.Version,
	}, &mcp.ServerOptions{
		Instructions:      opts.Instructions,
		Logger:            logging.Slog(logger),
		CompletionHandler: completionHandler(registry),
	})

	for _, module := range newMCPRegistrationModules(registry) {
		if err := module.register(server); err != nil {
			return nil, fmt.Errorf("register %s: %w", module.name, err)
		}
		logger.Debug("registered capabilities", "module", module.name, "kind", module.kind)
	}

	return &MCP{server: server, logger: logger}, nil
}

// Run connects one MCP session to in/out and waits for it to end.
func (e *MCP) Run(ctx context.Context, in io.ReadCloser, out io.WriteCloser) error {
	session, err := e.server.Connect(ctx, &mcp.IOTransport{Reader: in, Writer: out}, nil)
	if err != nil {
		return fmt.Errorf("connect mcp session: %w", err)
	}
	e.mu.Lock()
	e.session = session
	e.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Close ends the active session, if any.
func (e *MCP) Close() error {
	e.mu.Lock()
	session := e.session
	e.session = nil
	e.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		e.logger.Debug("close mcp session", "err", err)
	}
	return nil
}
