package gateway

// toolConfig is the static, data-driven tool -> (required scope, upstream
// path) mapping. Session selection is keyed by capability (required scope),
// never by hard-coded per-tool branching.
type toolConfig struct {
	RequiredScope string
	UpstreamPath  string
}

var toolTable = map[string]toolConfig{
	"echo":    {RequiredScope: "echo:read", UpstreamPath: "/mcp/echo"},
	"tickets": {RequiredScope: "tickets:read", UpstreamPath: "/tickets"},
	"pay":     {RequiredScope: "payments:charge", UpstreamPath: "/orders/{orderId}/pay"},
}

func lookupTool(toolID string) (toolConfig, bool) {
	cfg, ok := toolTable[toolID]
	return cfg, ok
}
