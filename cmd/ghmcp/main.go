package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grasshoppermcp/gateway/internal/cmd/ghmcp"
	"github.com/grasshoppermcp/gateway/internal/platform/config"
)

// main serves the gateway until SIGINT or SIGTERM.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ghmcp.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		config.Exitf("%v", err)
	}
}
