// Command authserver runs the demo Authorization Server: dynamic client
// registration, the authorization-code + PKCE grant, and introspection.
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

	"github.com/giantswarm/iag/internal/authserver"
	"github.com/giantswarm/iag/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:          "authserver",
	Short:        "Run the demo OAuth 2.1 authorization server",
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := authserver.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.LevelInfo, os.Stdout)
	if cfg.Debug {
		logging.Init(logging.LevelDebug, os.Stdout)
	}

	store := authserver.NewStore()
	server := authserver.NewServer(cfg, store)
	mux := authserver.NewMux(server)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("authserver", "listening on :%d", cfg.Port)
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
