package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kavehmz/agentic-office-manager/agent"
	"github.com/kavehmz/agentic-office-manager/agent/slackbot"
	"github.com/kavehmz/agentic-office-manager/agent/terminal"
	"github.com/kavehmz/agentic-office-manager/config"
	"github.com/kavehmz/agentic-office-manager/llm"
	"github.com/kavehmz/agentic-office-manager/logger"
	"github.com/kavehmz/agentic-office-manager/session"
	"github.com/kavehmz/agentic-office-manager/tools"
	"github.com/kavehmz/agentic-office-manager/tools/mcp"
)

func main() {
	slackFlag := flag.Bool("slack", false, "Run as a Slack bot instead of the interactive CLI")
	toolsetFlag := flag.String("t", "", "Toolset to use (defaults to 'default')")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %+v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	store, err := session.NewStore(cfg.Sessions.MaxConversations, cfg.SystemPrompt())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing session store: %+v\n", err)
		os.Exit(1)
	}

	registry := tools.NewRegistry(cfg, log)

	// Bridge tools from configured MCP servers into the registry. External
	// tools are sensitive unless the server is marked auto_approve.
	for _, server := range cfg.MCPServers {
		client, err := mcp.Connect(ctx, server.Name, server.Command, server.Args, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to MCP server '%s': %+v\n", server.Name, err)
			os.Exit(1)
		}
		defer client.Stop()
		for _, t := range client.Tools() {
			registry.Register(t, !server.AutoApprove)
		}
	}

	client, err := llm.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing model client: %+v\n", err)
		os.Exit(1)
	}

	officeAgent, err := agent.New(cfg, client, registry, store, log, *toolsetFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing agent: %+v\n", err)
		os.Exit(1)
	}

	if *slackFlag {
		botToken := os.Getenv("SLACK_BOT_TOKEN")
		appToken := os.Getenv("SLACK_APP_TOKEN")
		if botToken == "" || appToken == "" {
			fmt.Fprintln(os.Stderr, "SLACK_BOT_TOKEN and SLACK_APP_TOKEN environment variables must be set")
			os.Exit(1)
		}
		bot := slackbot.New(botToken, appToken, officeAgent, log)
		if err := bot.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Slack bot stopped with an error: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	initialPrompt := strings.Join(flag.Args(), " ")
	term := terminal.New(officeAgent, os.Stdin, os.Stdout)
	if err := term.Run(ctx, initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Agent stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}
