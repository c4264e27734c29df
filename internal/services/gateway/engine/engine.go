// Package engine implements the protocol engines that consume request frames
// from a duplex pair and produce response frames.
//
// The gateway treats an engine as a black box: it hands over the engine-side
// halves of the pair and runs the engine until the generation scope ends.
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
)

// Engine serves newline-delimited JSON-RPC frames read from in, writing one
// response frame to out per call.
type Engine interface {
	// Run blocks until ctx is done or the input stream ends.
	Run(ctx context.Context, in io.ReadCloser, out io.WriteCloser) error
}

// Factory builds a fresh engine for one gateway generation.
type Factory func(registry *capability.Registry) (Engine, error)

// Engine kinds accepted by ByName.
const (
	KindMCP     = "mcp"
	KindJSONRPC = "jsonrpc"
)

// Options configures engine construction.
type Options struct {
	Logger *log.Logger
	// Name and Version identify the server during MCP initialization.
	Name         string
	Version      string
	Instructions string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if strings.TrimSpace(o.Name) == "" {
		o.Name = "ghmcp"
	}
	if strings.TrimSpace(o.Version) == "" {
		o.Version = "dev"
	}
	return o
}

// ByName returns the factory for kind.
func ByName(kind string, opts Options) (Factory, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindMCP:
		return func(registry *capability.Registry) (Engine, error) {
			return NewMCP(registry, opts)
		}, nil
	case KindJSONRPC:
		return func(registry *capability.Registry) (Engine, error) {
			return NewJSONRPC(registry, opts)
		}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want %s or %s)", kind, KindMCP, KindJSONRPC)
	}
}
