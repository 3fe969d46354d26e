// Command livenotes-mcp serves live recording tools over MCP stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"livenotes/internal/bootstrap"
	"livenotes/internal/mcpserver"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "livenotes-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(nil)
	if err != nil {
		return err
	}
	defer services.Close()

	if hub := services.Hub; hub != nil {
		go func() {
			if err := hub.Serve(ctx, services.Config.Notify.Addr); err != nil {
				services.Logger.Errorw("event hub stopped", "addr", services.Config.Notify.Addr, "error", err)
			}
		}()
	}

	var history mcpserver.History
	if services.Journal != nil {
		history = services.Journal
	}

	srv := mcpserver.New(services.Controller, history, services.Logger, version)
	return srv.ServeStdio()
}
