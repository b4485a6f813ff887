package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/mrf/otop/internal/snapshot"
)

// mcpServerEntry mirrors one value in opencode.json's "mcp" object.
// enabled defaults to true when the field is absent from the host's
// config, per spec.md §6.
type mcpServerEntry struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled"`
}

type opencodeConfig struct {
	MCP map[string]mcpServerEntry `json:"mcp"`
}

// MCPReader reads the host tool's MCP server list from its own config
// file. It implements snapshot.MCPSource.
type MCPReader struct {
	path string
}

// NewMCPReader returns a reader over the opencode.json at path.
func NewMCPReader(path string) *MCPReader {
	return &MCPReader{path: path}
}

// DefaultMCPConfigPath is $HOME/.config/opencode/opencode.json.
func DefaultMCPConfigPath(home string) string {
	return filepath.Join(home, ".config", "opencode", "opencode.json")
}

// Servers reads and parses the MCP server list. A missing file or
// malformed JSON degrades to an empty list, never an error, matching
// every other external-source helper's failure contract.
func (r *MCPReader) Servers() []snapshot.MCPServer {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}

	var cfg opencodeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("[config] malformed opencode.json: %v", err)
		return nil
	}

	servers := make([]snapshot.MCPServer, 0, len(cfg.MCP))
	for name, entry := range cfg.MCP {
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		servers = append(servers, snapshot.MCPServer{Name: name, Type: entry.Type, Enabled: enabled})
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	return servers
}
