// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/stamp/cmd/stamp/cli"
	"github.com/bureau-foundation/stamp/lib/branch"
	"github.com/bureau-foundation/stamp/lib/runner"
)

type publishParams struct {
	cli.JSONOutput
	configParams
	Branch    string   `json:"branch" flag:"branch,b" desc:"branch being built (default: CI environment, then git HEAD)"`
	Packages  []string `json:"packages" flag:"package,p" desc:"only process the configured package with this dir (repeatable)"`
	DryRun    bool     `json:"dry_run" flag:"dry-run" desc:"resolve and plan without publishing, tagging, or deleting"`
	NoCleanup bool     `json:"no_cleanup" flag:"no-cleanup" desc:"skip retention cleanup"`
	Summary   string   `json:"summary" flag:"summary" desc:"append a markdown summary to this file (default $GITHUB_STEP_SUMMARY)"`
}

func publishCommand() *cli.Command {
	var params publishParams
	return &cli.Command{
		Name:    "publish",
		Summary: "Publish preview versions of every configured package",
		Description: `Fingerprint each package's build output, resolve its preview version
and branch tag, retire old versions over the ceiling, and publish.

A version that already exists (built by another branch with identical
output) is reused and only gains the branch tag. A failure in one
package is reported and does not stop the others; the command exits 1
if any package failed.`,
		Usage: "stamp publish [flags]",
		Examples: []cli.Example{
			{
				Description: "Publish from CI (branch detected from the environment)",
				Command:     "stamp publish",
			},
			{
				Description: "Preview what would happen for one package",
				Command:     "stamp publish --dry-run --package packages/widget --branch feature/login",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("publish", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			return runPublish(ctx, &params, logger)
		},
	}
}

func runPublish(ctx context.Context, params *publishParams, logger *slog.Logger) error {
	cfg, err := params.load()
	if err != nil {
		return err
	}
	pkgs, err := packages(cfg, params.Packages)
	if err != nil {
		return err
	}
	detection, err := detectBranch(ctx, cfg, params.Branch)
	if err != nil {
		return err
	}
	logger = logger.With("command", "publish", "branch", detection.Branch)
	logger.Info("detected branch", "source", detection.Source, "packages", len(pkgs))

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	hasher, err := newHasher(cfg)
	if err != nil {
		return err
	}

	policy := cfg.RetentionPolicy()
	var oracle branch.Oracle
	if !params.NoCleanup && policy.MaxVersions > 0 {
		oracle, err = newOracle(cfg, logger)
		if err != nil {
			logger.Warn("branch source unavailable, cleanup disabled", "error", err)
			oracle = nil
		}
	}

	r, err := runner.New(runner.Config{
		Registry:  reg,
		Oracle:    oracle,
		Hasher:    hasher,
		Policy:    policy,
		Logger:    logger,
		DryRun:    params.DryRun,
		NoCleanup: params.NoCleanup,
	})
	if err != nil {
		return err
	}

	report, err := r.Run(ctx, detection.Branch, pkgs)
	if err != nil {
		return err
	}

	summaryPath := params.Summary
	if summaryPath == "" {
		summaryPath = getenv("GITHUB_STEP_SUMMARY")
	}
	if summaryPath != "" {
		if err := appendSummary(summaryPath, report); err != nil {
			logger.Warn("writing step summary failed", "path", summaryPath, "error", err)
		}
	}

	if done, err := params.EmitJSON(report); done {
		if err != nil {
			return err
		}
	} else {
		renderReport(cli.Stdout, report)
	}

	if report.Failed() > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
