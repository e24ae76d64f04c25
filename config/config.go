package config

import (
	"os"
	"path/filepath"

	"github.com/kavehmz/agentic-office-manager/errors"
	"gopkg.in/yaml.v3"
)

const configDir = ".officemgr"

// MCPServer describes an external MCP server whose tools are bridged into
// the registry. Tools from external servers are treated as sensitive unless
// the server is explicitly marked otherwise.
type MCPServer struct {
	Name        string   `yaml:"name"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
	AutoApprove bool     `yaml:"auto_approve"`
}

// Toolset names a subset of registered tools to offer to the model.
// Entries may be doublestar patterns, e.g. "gopls.*" or "mcp:*".
type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

// LoggerConfig selects slog level, format and output target.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// SessionConfig bounds the in-memory conversation store.
type SessionConfig struct {
	MaxConversations int `yaml:"max_conversations"`
}

type Config struct {
	LLMClient        string                 `yaml:"llm"`
	Model            string                 `yaml:"model"`
	SystemPromptPath string                 `yaml:"system_prompt_path"`
	TrustedParams    map[string]interface{} `yaml:"trusted_params"`
	RequireApproval  []string               `yaml:"require_approval"` // doublestar patterns
	Toolsets         []Toolset              `yaml:"toolsets"`
	MCPServers       []MCPServer            `yaml:"mcp_servers"`
	Sessions         SessionConfig          `yaml:"sessions"`
	Logger           LoggerConfig           `yaml:"logger"`
}

// LoadConfig loads configuration from the user's home directory and the current
// working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, configDir, "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, configDir, "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.TrustedParams = map[string]interface{}{"age": 2}
	c.Sessions.MaxConversations = 512
	c.Logger = LoggerConfig{Level: "info", Format: "text", Output: "stderr"}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Note: Unmarshal will overwrite fields present in the YAML. This provides
	// a simple merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// GetToolset finds a toolset by name. Returns the "default" toolset if the
// named one is not found or if an empty name is provided. A missing "default"
// toolset means every registered tool is offered.
func (c *Config) GetToolset(name string) *Toolset {
	if name == "" {
		name = "default"
	}
	for _, ts := range c.Toolsets {
		if ts.Name == name {
			return &ts
		}
	}
	if name == "default" {
		return &Toolset{Name: "default", Tools: []string{"*"}}
	}
	return c.GetToolset("default")
}

// SystemPrompt reads the configured system prompt file, falling back to a
// built-in prompt when no file is configured or readable.
func (c *Config) SystemPrompt() string {
	const fallback = "You are the office manager, a helpful assistant."
	path := c.SystemPromptPath
	if path == "" {
		path = filepath.Join(configDir, "system.md")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	return string(data)
}
