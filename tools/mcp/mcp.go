// Package mcp bridges tools served by external MCP server subprocesses into
// the agent's tool registry.
package mcp

import (
	"context"
	"log/slog"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kavehmz/agentic-office-manager/errors"
	"github.com/kavehmz/agentic-office-manager/tools"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name   string
	cmd    *exec.Cmd
	conn   *mcpsdk.ClientSession
	tools  map[string]*ServerTool
	logger *slog.Logger
}

// Connect starts the MCP server subprocess and discovers the tools it
// provides.
func Connect(ctx context.Context, name, command string, args []string, logger *slog.Logger) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "officemgr", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}

	client := &Client{
		Name:   name,
		cmd:    cmd,
		conn:   conn,
		tools:  make(map[string]*ServerTool),
		logger: logger,
	}

	params := &mcpsdk.ListToolsParams{}
	for {
		toolList, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range toolList.Tools {
			client.tools[t.Name] = &ServerTool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				client:      client,
			}
		}
		if toolList.NextCursor == "" {
			break
		}
		params.Cursor = toolList.NextCursor
	}

	logger.Info("initialized MCP client", "server", name, "tools", len(client.tools))
	return client, nil
}

// Tools returns every tool discovered on this server.
func (c *Client) Tools() []*ServerTool {
	out := make([]*ServerTool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	return out
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.logger.Info("terminating MCP server", "server", c.Name)
		return c.cmd.Process.Kill()
	}
	return nil
}

// ServerTool is a tool living on an external MCP server. It satisfies the
// registry's Tool interface. Trusted parameters are never forwarded to
// external servers; only the model-supplied arguments cross the process
// boundary.
type ServerTool struct {
	serverName  string
	toolName    string
	description string
	client      *Client
}

// Name returns the registry name, prefixed with the server name so tools
// from different servers cannot collide.
func (t *ServerTool) Name() string { return t.serverName + ":" + t.toolName }

// Description returns the tool's description, provided by the MCP server.
func (t *ServerTool) Description() string { return t.description }

// Execute sends the arguments to the MCP server and concatenates the text
// content of the result.
func (t *ServerTool) Execute(ctx context.Context, args map[string]interface{}, _ tools.Params) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call MCP tool '%s' on '%s'", t.toolName, t.serverName)
	}
	var out string
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}
