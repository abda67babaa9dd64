// Command resourceserver runs the demo protected resource: echo, tickets,
// and orders-pay tool endpoints guarded by AS token introspection.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/resourceserver"
)

var rootCmd = &cobra.Command{
	Use:          "resourceserver",
	Short:        "Run the demo protected resource server",
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resourceserver.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.LevelInfo, os.Stdout)
	if cfg.Debug {
		logging.Init(logging.LevelDebug, os.Stdout)
	}

	server := resourceserver.NewServer(cfg)
	mux := resourceserver.NewMux(server)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("resourceserver", "listening on :%d", cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
