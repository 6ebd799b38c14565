// Package mcpserver exposes invocation verification as MCP tools.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/invokecheck/pkg/config"
)

// Server wraps the MCP server and registers the invokecheck tools.
type Server struct {
	server *mcp.Server
	config *config.Config
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration used for scanning, caching and the
// default rule set. Without it the config is loaded from the working
// directory.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// NewServer creates a new MCP server with all tools and prompts registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "invokecheck",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		cfg, err := config.LoadOrDefault()
		if err != nil || cfg == nil {
			cfg = config.DefaultConfig()
		}
		s.config = cfg
	}

	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verify_invocation",
		Description: describeVerifyInvocation(),
	}, s.handleVerifyInvocation)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_calls",
		Description: describeListCalls(),
	}, s.handleListCalls)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compare_descriptors",
		Description: describeCompareDescriptors(),
	}, s.handleCompareDescriptors)
}
