package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/invokecheck/internal/cache"
	"github.com/panbanda/invokecheck/internal/logging"
	"github.com/panbanda/invokecheck/internal/output"
	"github.com/panbanda/invokecheck/pkg/config"
)

// valueFlags take a separate value argument when not written as --name=value.
var valueFlags = map[string]bool{
	"format": true, "f": true,
	"output": true, "o": true,
	"config": true, "c": true,
}

// outputFlags are shared by every command that renders a result.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "",
			Usage:   "Output format: text, json, markdown, toon, yaml (default from config, else text)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Disable caching",
		},
	}
}

// getPaths returns positional arguments, defaulting to ["."]. Flags placed
// after a path are not parsed by cli and are skipped here.
func getPaths(c *cli.Context) []string {
	var paths []string
	args := c.Args().Slice()
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			paths = append(paths, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if !strings.Contains(name, "=") && valueFlags[name] {
			i++
		}
	}
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

// getTrailingFlag returns a string flag that may appear after positional
// arguments, where cli stops parsing flags.
func getTrailingFlag(c *cli.Context, name, short, defaultValue string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	args := c.Args().Slice()
	for i, arg := range args {
		for _, prefix := range []string{"--" + name, "-" + short} {
			if arg == prefix && i+1 < len(args) {
				return args[i+1]
			}
			if v, ok := strings.CutPrefix(arg, prefix+"="); ok {
				return v
			}
		}
	}
	return defaultValue
}

// hasTrailingBool reports whether a bool flag is set before or after the
// positional arguments.
func hasTrailingBool(c *cli.Context, name string) bool {
	if c.Bool(name) {
		return true
	}
	for _, arg := range c.Args().Slice() {
		if arg == "--"+name {
			return true
		}
	}
	return false
}

// loadConfig loads --config when given, otherwise the config found in the
// working directory, otherwise defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := getTrailingFlag(c, "config", "c", ""); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault()
}

func newLogger(c *cli.Context) *logging.Logger {
	return logging.NewWithWriter(c.Bool("verbose"), c.App.ErrWriter)
}

// openCache returns the configured cache, or nil when caching is off.
func openCache(c *cli.Context, cfg *config.Config, logger *logging.Logger) *cache.Cache {
	if !cfg.Cache.Enabled || hasTrailingBool(c, "no-cache") {
		return nil
	}
	ch, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
	if err != nil {
		logger.Warnf("cache disabled: %v", err)
		return nil
	}
	return ch
}

// newFormatter builds the formatter for --format and --output, falling back
// to the configured output settings.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(getTrailingFlag(c, "format", "f", cfg.Output.Format))
	colored := cfg.Output.Color && !color.NoColor

	if path := getTrailingFlag(c, "output", "o", ""); path != "" {
		f, err := output.NewFormatter(format, path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open output file: %w", err)
		}
		return f, nil
	}
	return output.NewWriterFormatter(format, c.App.Writer, colored), nil
}

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
