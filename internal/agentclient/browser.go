package agentclient

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser launches the platform's default browser at url, mirroring
// the reference agent's webbrowser.open call. Demo/CLI usage only --
// failures are non-fatal, the caller should print the URL as a fallback.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
