package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/invokecheck/internal/progress"
	"github.com/panbanda/invokecheck/internal/report"
	scannerSvc "github.com/panbanda/invokecheck/internal/service/scanner"
	"github.com/panbanda/invokecheck/internal/service/verification"
	"github.com/panbanda/invokecheck/pkg/config"
	"github.com/panbanda/invokecheck/pkg/watch"
)

// errUnsatisfied is returned when a rule is not satisfied and
// --fail-unsatisfied is set, so the process exits non-zero.
var errUnsatisfied = errors.New("invocation rules not satisfied")

func verifyCmd() *cli.Command {
	flags := append(outputFlags(),
		&cli.StringFlag{Name: "target-class", Usage: "Class declaring the target method (dotted or internal name)"},
		&cli.StringFlag{Name: "target-method", Aliases: []string{"m"}, Usage: "Target method name"},
		&cli.StringFlag{Name: "target-descriptor", Usage: "Target method descriptor, JVM or Java source form"},
		&cli.StringFlag{Name: "called-class", Usage: "Owner of the called method"},
		&cli.StringFlag{Name: "called-method", Aliases: []string{"k"}, Usage: "Called method name"},
		&cli.StringFlag{Name: "called-descriptor", Usage: "Called method descriptor, JVM or Java source form"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: config.DefaultCount, Usage: "Minimum number of calls required"},
		&cli.StringFlag{Name: "policy", Usage: "any (one overload suffices) or all (every overload must satisfy)"},
		&cli.StringSliceFlag{Name: "rule", Aliases: []string{"r"}, Usage: "Only verify configured rules with this name (repeatable)"},
		&cli.BoolFlag{Name: "fail-unsatisfied", Value: true, Usage: "Exit non-zero when a rule is not satisfied"},
		&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Verify again whenever class files or archives change"},
		&cli.DurationFlag{Name: "debounce", Value: watch.DefaultDebounce, Usage: "Quiet period before a watched change is verified"},
	)

	return &cli.Command{
		Name:      "verify",
		Aliases:   []string{"v"},
		Usage:     "Verify that target methods contain the required calls",
		ArgsUsage: "[path...]",
		Description: `Scans class files, directories and jar archives and checks every rule.

A rule given with --target-method and --called-method replaces the configured
rules. Otherwise the rules from the config file are verified.

Examples:
  invokecheck verify --target-method close --called-method flush build/classes
  invokecheck verify --target-method 'transfer' --called-method record --count 2 app.jar
  invokecheck -c invokecheck.toml verify --rule audit build/libs
  invokecheck verify --watch build/classes`,
		Flags:  flags,
		Action: runVerifyCmd,
	}
}

func runVerifyCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rules, err := selectRules(c, cfg)
	if err != nil {
		return err
	}
	compiled, err := config.CompileRules(rules)
	if err != nil {
		return err
	}

	logger := newLogger(c)
	svc := verification.New(
		verification.WithConfig(cfg),
		verification.WithCache(openCache(c, cfg, logger)),
		verification.WithLogger(logger),
	)

	ctx, cancel := signalContext()
	defer cancel()

	paths := getPaths(c)
	if c.Bool("watch") {
		return watchVerify(ctx, c, cfg, svc, compiled, paths)
	}

	rep, err := verifyOnce(ctx, c, cfg, svc, compiled, paths)
	if err != nil || rep == nil {
		return err
	}
	if !rep.Passed && c.Bool("fail-unsatisfied") {
		return errUnsatisfied
	}
	return nil
}

// verifyOnce scans paths, verifies every input and writes the report. The
// report is nil when no inputs were found.
func verifyOnce(ctx context.Context, c *cli.Context, cfg *config.Config, svc *verification.Service, rules []config.Compiled, paths []string) (*report.Report, error) {
	scanResult, err := scannerSvc.New(scannerSvc.WithConfig(cfg)).ScanPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(scanResult.Files) == 0 {
		color.Yellow("No class files or archives found")
		return nil, nil
	}

	tracker := progress.NewTracker("Verifying invocations...", len(scanResult.Files), progress.WithWriter(c.App.ErrWriter))
	rep, err := svc.Verify(ctx, scanResult.Files, rules, tracker.Tick)
	if err != nil {
		tracker.FinishError(err)
		return nil, err
	}
	tracker.FinishSuccess()
	rep.Paths = paths

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return nil, err
	}
	defer formatter.Close()

	if err := formatter.Output(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// watchVerify verifies once, then again after every batch of changes until
// ctx is cancelled. Unsatisfied rules never end the loop.
func watchVerify(ctx context.Context, c *cli.Context, cfg *config.Config, svc *verification.Service, rules []config.Compiled, paths []string) error {
	if _, err := verifyOnce(ctx, c, cfg, svc, rules, paths); err != nil {
		return err
	}

	w, err := watch.NewWatcher(paths, cfg, c.Duration("debounce"))
	if err != nil {
		return err
	}
	defer w.Stop()

	w.OnChange(func(changed []string) {
		color.Yellow("\n%d inputs changed", len(changed))
		if _, err := verifyOnce(ctx, c, cfg, svc, rules, paths); err != nil && ctx.Err() == nil {
			color.Red("Error: %v", err)
		}
	})

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// selectRules returns the ad-hoc rule from flags, or the configured rules
// filtered by --rule.
func selectRules(c *cli.Context, cfg *config.Config) ([]config.Rule, error) {
	if c.IsSet("target-method") || c.IsSet("called-method") {
		if c.String("target-method") == "" {
			return nil, errors.New("--target-method is required")
		}
		if c.String("called-method") == "" {
			return nil, errors.New("--called-method is required")
		}
		rule := config.Rule{
			TargetClass:      c.String("target-class"),
			TargetMethod:     c.String("target-method"),
			TargetDescriptor: c.String("target-descriptor"),
			CalledClass:      c.String("called-class"),
			CalledMethod:     c.String("called-method"),
			CalledDescriptor: c.String("called-descriptor"),
			Policy:           c.String("policy"),
		}
		if c.IsSet("count") {
			rule = rule.WithCount(c.Int("count"))
		}
		return []config.Rule{rule}, nil
	}

	rules := cfg.Rules
	if names := c.StringSlice("rule"); len(names) > 0 {
		want := make(map[string]bool, len(names))
		for _, n := range names {
			want[n] = true
		}
		rules = nil
		for _, r := range cfg.Rules {
			if want[r.Name] {
				rules = append(rules, r)
			}
		}
		if len(rules) == 0 {
			return nil, fmt.Errorf("no configured rule named %s", strings.Join(names, ", "))
		}
	}
	if len(rules) == 0 {
		return nil, errors.New("no rules configured; pass --target-method and --called-method or add rules to invokecheck.toml")
	}
	return rules, nil
}
