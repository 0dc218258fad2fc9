package system

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/devotional/internal/cli"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/server"
)

// ServeCmd serves the HTTP API for a UI collaborator
type ServeCmd struct {
	Addr string `help:"Listen address." default:"${server_addr}"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(ctx.Store, ctx.Content(), ctx.Scheduler()).HTTPServer(c.Addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("API listening", "addr", c.Addr)
	fmt.Fprintf(ctx.Stdout(), "Serving on http://%s\n", c.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
