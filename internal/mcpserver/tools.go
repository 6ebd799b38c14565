package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/invokecheck/internal/cache"
	"github.com/panbanda/invokecheck/internal/output"
	scannerSvc "github.com/panbanda/invokecheck/internal/service/scanner"
	"github.com/panbanda/invokecheck/internal/service/verification"
	"github.com/panbanda/invokecheck/pkg/config"
	"github.com/panbanda/invokecheck/pkg/descriptor"
)

// PathsInput is the base input for tools that read compiled classes.
type PathsInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Class files, directories or jar/war/zip archives. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// VerifyInput describes one invocation rule. When target_method is empty the
// rules of the config file are verified instead.
type VerifyInput struct {
	PathsInput
	TargetClass      string `json:"target_class,omitempty" jsonschema:"Class declaring the target method, dotted or internal form. Empty matches any class."`
	TargetMethod     string `json:"target_method,omitempty" jsonschema:"Name of the method whose body must contain the calls."`
	TargetDescriptor string `json:"target_descriptor,omitempty" jsonschema:"Descriptor of the target method to select one overload. Empty selects all."`
	CalledClass      string `json:"called_class,omitempty" jsonschema:"Owner type of the required call. Empty matches any owner."`
	CalledMethod     string `json:"called_method,omitempty" jsonschema:"Name of the method that must be called."`
	CalledDescriptor string `json:"called_descriptor,omitempty" jsonschema:"Descriptor of the required call. Empty matches any overload."`
	Count            *int   `json:"count,omitempty" jsonschema:"Minimum number of matching call sites. Default 1."`
	Policy           string `json:"policy,omitempty" jsonschema:"How overloads combine: any (default) or all."`
}

// DescriptorInput holds two descriptors to compare.
type DescriptorInput struct {
	A string `json:"a" jsonschema:"First descriptor, JVM or Java source form."`
	B string `json:"b" jsonschema:"Second descriptor, JVM or Java source form."`
}

// DescriptorResult is the outcome of compare_descriptors.
type DescriptorResult struct {
	A          string `json:"a" toon:"a"`
	B          string `json:"b" toon:"b"`
	Equivalent bool   `json:"equivalent" toon:"equivalent"`
}

func getPaths(input PathsInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input PathsInput) output.Format {
	switch strings.ToLower(input.Format) {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// rules returns the ad-hoc rule from input, or the configured rules when the
// input names no target method.
func (s *Server) rules(input VerifyInput) ([]config.Rule, error) {
	if input.TargetMethod == "" {
		if input.CalledMethod != "" {
			return nil, errors.New("target_method is required")
		}
		if len(s.config.Rules) == 0 {
			return nil, errors.New("no rule given and no rules configured")
		}
		return s.config.Rules, nil
	}
	if input.CalledMethod == "" {
		return nil, errors.New("called_method is required")
	}
	return []config.Rule{{
		TargetClass:      input.TargetClass,
		TargetMethod:     input.TargetMethod,
		TargetDescriptor: input.TargetDescriptor,
		CalledClass:      input.CalledClass,
		CalledMethod:     input.CalledMethod,
		CalledDescriptor: input.CalledDescriptor,
		Count:            input.Count,
		Policy:           input.Policy,
	}}, nil
}

func (s *Server) scanFiles(paths []string) ([]string, error) {
	scanResult, err := scannerSvc.New(scannerSvc.WithConfig(s.config)).ScanPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(scanResult.Files) == 0 {
		return nil, errors.New("no class files or archives found")
	}
	return scanResult.Files, nil
}

func (s *Server) verificationService() *verification.Service {
	opts := []verification.Option{verification.WithConfig(s.config)}
	if s.config.Cache.Enabled {
		if c, err := cache.New(s.config.Cache.Dir, s.config.Cache.TTL, true); err == nil {
			opts = append(opts, verification.WithCache(c))
		}
	}
	return verification.New(opts...)
}

// Tool handlers

func (s *Server) handleVerifyInvocation(ctx context.Context, req *mcp.CallToolRequest, input VerifyInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.PathsInput)

	rules, err := s.rules(input)
	if err != nil {
		return toolError(err.Error())
	}
	compiled, err := config.CompileRules(rules)
	if err != nil {
		return toolError(err.Error())
	}

	files, err := s.scanFiles(getPaths(input.PathsInput))
	if err != nil {
		return toolError(err.Error())
	}

	rep, err := s.verificationService().Verify(ctx, files, compiled, nil)
	if err != nil {
		return toolError(err.Error())
	}
	rep.Paths = getPaths(input.PathsInput)
	return toolResult(rep, format)
}

func (s *Server) handleListCalls(ctx context.Context, req *mcp.CallToolRequest, input PathsInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input)

	files, err := s.scanFiles(getPaths(input))
	if err != nil {
		return toolError(err.Error())
	}

	listing, err := s.verificationService().ListCalls(ctx, files, nil)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(listing, format)
}

func (s *Server) handleCompareDescriptors(ctx context.Context, req *mcp.CallToolRequest, input DescriptorInput) (*mcp.CallToolResult, any, error) {
	a, err := descriptor.Internalize(input.A)
	if err != nil {
		return toolError("a: " + err.Error())
	}
	b, err := descriptor.Internalize(input.B)
	if err != nil {
		return toolError("b: " + err.Error())
	}
	equal, err := descriptor.Equal(a, b)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(DescriptorResult{A: a, B: b, Equivalent: equal}, output.FormatTOON)
}
