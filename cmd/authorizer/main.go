// Command authorizer runs the ADP: the delegation store and policy
// evaluator the gateway consults before issuing tool access.
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

	"github.com/giantswarm/iag/internal/authorizer"
	"github.com/giantswarm/iag/internal/logging"
)

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

var rootCmd = &cobra.Command{
	Use:          "authorizer",
	Short:        "Run the delegation store and policy evaluator (ADP)",
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := authorizer.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.LevelInfo, os.Stdout)
	if cfg.Debug {
		logging.Init(logging.LevelDebug, os.Stdout)
	}

	store, err := authorizer.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open delegation store: %w", err)
	}
	defer store.Close()

	server := authorizer.NewServer(store, cfg.StrictMode)
	mux := authorizer.NewMux(server)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("authorizer", "listening on :%d (strict=%v)", cfg.Port, cfg.StrictMode)
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
		os.Exit(exitCodeError)
	}
	os.Exit(exitCodeSuccess)
}
