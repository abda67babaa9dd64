// Command agent is the demo AI-agent client: it starts a gateway session
// for a tool call, opens a browser for user consent, polls for readiness,
// and invokes the tool -- all without ever touching a raw OAuth token.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/iag/internal/agentclient"
)

var (
	gatewayBase string
	toolID      string
	scope       string
	noBrowser   bool
)

var rootCmd = &cobra.Command{
	Use:          "agent",
	Short:        "Call a tool through the identity-aware gateway",
	SilenceUsage: true,
	RunE:         runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := agentclient.NewClient(gatewayBase)

	start, err := client.Start(ctx, agentclient.StartRequest{ToolID: toolID, Scope: scope})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Printf("session started: sid=%s\n", start.SID)
	fmt.Printf("authorize_url: %s\n", start.AuthorizeURL)

	if !noBrowser {
		if err := agentclient.OpenBrowser(start.AuthorizeURL); err != nil {
			fmt.Printf("could not open browser automatically, visit the URL above manually: %v\n", err)
		}
	}

	fmt.Println("waiting for consent/authentication to complete...")
	if err := client.WaitReady(ctx, start.SID, scope, time.Second, 60); err != nil {
		return fmt.Errorf("wait for ready session: %w", err)
	}

	status, body, err := client.CallTool(ctx, toolID, http.MethodGet, nil, nil)
	if err != nil {
		return fmt.Errorf("call tool: %w", err)
	}

	var pretty interface{}
	if json.Unmarshal(body, &pretty) == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Printf("tool response (%d):\n%s\n", status, out)
	} else {
		fmt.Printf("tool response (%d): %s\n", status, body)
	}
	return nil
}

func init() {
	rootCmd.Flags().StringVar(&gatewayBase, "gateway", "http://localhost:9200", "gateway base URL")
	rootCmd.Flags().StringVar(&toolID, "tool", "echo", "tool id to call (echo|tickets|pay)")
	rootCmd.Flags().StringVar(&scope, "scope", "echo:read", "scope to request")
	rootCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the authorize URL instead of opening a browser")
}

func main() {
	rootCmd.SetContext(context.Background())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
