package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/invokecheck/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: runConfigShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate a configuration file",
				Action: runConfigValidate,
			},
			{
				Name:  "init",
				Usage: "Create a configuration file with an example rule",
				Description: `Creates invokecheck.toml with default settings and one example rule.

Examples:
  invokecheck config init
  invokecheck config init -o .invokecheck/invokecheck.toml
  invokecheck config init --force`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "invokecheck.toml", Usage: "Output file path"},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite existing config file"},
				},
				Action: runConfigInit,
			},
		},
	}
}

// configSource returns the config file that loadConfig would read.
func configSource(c *cli.Context) string {
	if path := c.String("config"); path != "" {
		return path
	}
	return config.Find(".")
}

func runConfigShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if source := configSource(c); source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(*cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(content)
	return err
}

func runConfigValidate(c *cli.Context) error {
	source := configSource(c)
	if source == "" {
		color.Yellow("No config file found. Default configuration is valid.")
		return nil
	}

	cfg, err := config.Load(source)
	if err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}
	color.Green("Configuration valid: %s (%d rules)", source, len(cfg.Rules))
	return nil
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", outputPath)
	fmt.Fprintln(c.App.Writer, "Edit the [[rules]] entries to describe your invocation preconditions.")
	return nil
}

// exampleRule is written by config init.
var exampleRule = config.Rule{
	Name:         "flush-before-close",
	TargetMethod: "close",
	CalledMethod: "flush",
}

func generateDefaultConfig() (string, error) {
	cfg := config.DefaultConfig()
	cfg.Rules = []config.Rule{exampleRule}

	content, err := toml.Marshal(*cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# invokecheck configuration\n")
	buf.WriteString("# Each [[rules]] entry requires target_method to call called_method at least count times.\n\n")
	buf.Write(content)
	return buf.String(), nil
}
