package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/invokecheck/internal/progress"
	scannerSvc "github.com/panbanda/invokecheck/internal/service/scanner"
	"github.com/panbanda/invokecheck/internal/service/verification"
)

func callsCmd() *cli.Command {
	return &cli.Command{
		Name:      "calls",
		Usage:     "List the call instructions of every method",
		ArgsUsage: "[path...]",
		Description: `Decodes classes and prints each method with the calls it makes, in
program order. Useful for finding the exact owner, name and descriptor to
use in a rule.`,
		Flags:  outputFlags(),
		Action: runCallsCmd,
	}
}

func runCallsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	scanResult, err := scannerSvc.New(scannerSvc.WithConfig(cfg)).ScanPaths(getPaths(c))
	if err != nil {
		return err
	}
	if len(scanResult.Files) == 0 {
		color.Yellow("No class files or archives found")
		return nil
	}

	svc := verification.New(verification.WithConfig(cfg), verification.WithLogger(newLogger(c)))

	ctx, cancel := signalContext()
	defer cancel()

	tracker := progress.NewTracker("Decoding classes...", len(scanResult.Files), progress.WithWriter(c.App.ErrWriter))
	listing, err := svc.ListCalls(ctx, scanResult.Files, tracker.Tick)
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(listing)
}
