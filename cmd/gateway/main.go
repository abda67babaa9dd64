// Command gateway runs the Identity-Aware Gateway: session orchestration,
// OAuth callback handling, and the obligation-enforcing tool proxy.
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

	"github.com/giantswarm/iag/internal/gateway"
	"github.com/giantswarm/iag/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:          "gateway",
	Short:        "Run the identity-aware gateway",
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := gateway.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.LevelInfo, os.Stdout)
	if cfg.Debug {
		logging.Init(logging.LevelDebug, os.Stdout)
	}

	g := gateway.NewGateway(cfg)

	regCtx, cancelReg := context.WithTimeout(cmd.Context(), 15*time.Second)
	if err := g.EnsureRegistered(regCtx); err != nil {
		logging.Warn("gateway", "self-registration with authorization server failed, falling back to configured client_id: %v", err)
	}
	cancelReg()

	mux := gateway.NewMux(g)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("gateway", "listening on :%d (base=%s)", cfg.Port, cfg.Base)
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
