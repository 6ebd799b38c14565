package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/invokecheck/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes invocation
verification as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "invokecheck": {
        "command": "invokecheck",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - verify_invocation     Check that target methods make the required calls
  - list_calls            List call instructions per method
  - compare_descriptors   Compare JVM and Java source method descriptors`,
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	server := mcpserver.NewServer(version, mcpserver.WithConfig(cfg))
	return server.Run(ctx)
}
