// Package setup registers the anatomy-twin MCP server with desktop MCP
// clients that read a claude_desktop_config.json style file.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ServerName is the key the server is registered under.
const ServerName = "anatomy-twin"

// DataDirEnv is passed to the registered server so it finds its preference
// database.
const DataDirEnv = "TWIN_DATA_DIR"

// ClientConfig is the client configuration file. Entries for other servers
// are preserved untouched.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
}

// ServerEntry launches one MCP server.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options describe the entry to write.
type Options struct {
	ConfigPath string // defaults to ClientConfigPath()
	BinaryPath string // defaults to the running executable
	DataDir    string
}

// ClientConfigPath returns the per-OS location of the client config.
func ClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return configPathFor(runtime.GOOS, home, os.Getenv)
}

func configPathFor(goos, home string, getenv func(string) string) (string, error) {
	var dir string
	switch goos {
	case "darwin":
		dir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "Claude")
		} else {
			dir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
	return filepath.Join(dir, "claude_desktop_config.json"), nil
}

// Load reads the client config. A missing file is an empty config.
func Load(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ClientConfig{MCPServers: map[string]ServerEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerEntry{}
	}
	return &cfg, nil
}

// Save writes cfg, creating the directory when needed.
func Save(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the anatomy-twin entry. The entry runs the
// stdio tool server in lite mode. It returns the config path written.
func Register(opts Options) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = ClientConfigPath(); err != nil {
			return "", err
		}
	}

	binary := opts.BinaryPath
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("could not determine server binary: %w", err)
		}
		binary = exe
	}

	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	entry := ServerEntry{Command: binary, Args: []string{"mcp", "--lite"}}
	if opts.DataDir != "" {
		entry.Env = map[string]string{DataDirEnv: opts.DataDir}
	}
	cfg.MCPServers[ServerName] = entry
	return path, Save(path, cfg)
}

// Status is what the client config says about this server.
type Status struct {
	ConfigPath string
	Registered bool
	Binary     string
	DataDir    string
	Issues     []string
}

// Check inspects the client config at path. Problems are reported as
// issues rather than errors.
func Check(path, defaultDataDir string) *Status {
	status := &Status{ConfigPath: path, DataDir: defaultDataDir, Issues: []string{}}

	cfg, err := Load(path)
	if err != nil {
		status.Issues = append(status.Issues, err.Error())
		return status
	}
	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, ServerName+" is not registered")
		return status
	}

	status.Registered = true
	status.Binary = entry.Command
	if dir := entry.Env[DataDirEnv]; dir != "" {
		status.DataDir = dir
	}

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, "server binary not found: "+entry.Command)
	case info.Mode()&0111 == 0:
		status.Issues = append(status.Issues, "server binary is not executable: "+entry.Command)
	}
	return status
}
