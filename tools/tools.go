package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kavehmz/agentic-office-manager/config"
	"github.com/kavehmz/agentic-office-manager/errors"
)

// ErrUnknownTool is returned when a requested tool name is not registered.
var ErrUnknownTool = errors.Sentinel("tools: unknown tool")

// Params holds trusted, process-owned parameters injected into every tool
// execution. They come from configuration, never from the model, and a tool
// call's arguments cannot override them.
type Params map[string]interface{}

// Tool defines the interface for any action the agent can take. Execute
// receives the model-supplied arguments and the trusted parameters as
// separate values; the capability boundary between the two is deliberate.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}, params Params) (string, error)
}

// Registry is the static catalogue of tools plus their approval flags.
// Registration happens once at startup; lookups are case-insensitive.
type Registry struct {
	tools         map[string]Tool
	needsApproval map[string]bool
	overrides     []string // doublestar patterns forcing approval
	params        Params
	logger        *slog.Logger
}

// NewRegistry builds a registry with the builtin tools registered and
// approval overrides and trusted parameters taken from configuration.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	r := &Registry{
		tools:         make(map[string]Tool),
		needsApproval: make(map[string]bool),
		overrides:     cfg.RequireApproval,
		params:        Params(cfg.TrustedParams),
		logger:        logger,
	}

	r.Register(&RandomStringTool{}, true)
	r.Register(&ToUpperTool{}, false)
	r.Register(&GetDateTool{}, false)

	return r
}

// Register adds a tool under its lowercased name together with its
// approval flag.
func (r *Registry) Register(t Tool, needsApproval bool) {
	name := strings.ToLower(t.Name())
	r.tools[name] = t
	r.needsApproval[name] = needsApproval
}

// Lookup returns the tool registered under name (case-insensitive).
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.tools[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTool, "'%s' is not registered", name)
	}
	return t, nil
}

// RequiresApproval reports whether a tool must be gated behind a human
// decision. Unknown names default to false so an unregistered name never
// blocks a batch; it fails at lookup time instead.
func (r *Registry) RequiresApproval(name string) bool {
	name = strings.ToLower(name)
	for _, pattern := range r.overrides {
		if ok, err := doublestar.Match(strings.ToLower(pattern), name); err == nil && ok {
			return true
		}
	}
	return r.needsApproval[name]
}

// Execute looks up and runs a tool, injecting the trusted parameters.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	if r.logger != nil {
		r.logger.Info("executing tool", "tool", t.Name())
	}
	return t.Execute(ctx, args, r.params)
}

// ActiveTools returns the tool instances selected by a toolset. Entries may
// be doublestar patterns; a literal entry that matches nothing is an error.
func (r *Registry) ActiveTools(ts *config.Toolset) ([]Tool, error) {
	var active []Tool
	seen := make(map[string]bool)

	for _, entry := range ts.Tools {
		pattern := strings.ToLower(entry)
		matched := false
		for name, t := range r.tools {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid tool pattern '%s' in toolset '%s'", entry, ts.Name)
			}
			if ok && !seen[name] {
				seen[name] = true
				active = append(active, t)
				matched = true
			}
		}
		if !matched && !strings.ContainsAny(pattern, "*?[") {
			return nil, errors.New("tool '%s' from toolset '%s' is not registered", entry, ts.Name)
		}
	}
	return active, nil
}
