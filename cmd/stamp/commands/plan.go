// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/stamp/cmd/stamp/cli"
	"github.com/bureau-foundation/stamp/lib/preview"
	"github.com/bureau-foundation/stamp/lib/retention"
	"github.com/bureau-foundation/stamp/lib/runner"
)

type planParams struct {
	cli.JSONOutput
	configParams
	MaxVersions int `json:"max_versions" flag:"max-versions" desc:"override retention.max_versions"`
	MinAgeDays  int `json:"min_age_days" flag:"min-age-days" desc:"override retention.min_age_days" default:"-1"`
}

// planResult is the JSON shape of one package's plan.
type planResult struct {
	Name     string             `json:"name"`
	Decision retention.Decision `json:"decision"`

	// NotPreview lists planned deletions that stamp did not produce,
	// such as hand-published releases sharing the package name.
	NotPreview []string `json:"not_preview,omitempty"`
}

func planCommand() *cli.Command {
	var params planParams
	return &cli.Command{
		Name:    "plan",
		Summary: "Show which versions retention would delete",
		Description: `List the versions the retention policy would delete right now, without
deleting anything. With no arguments, plans every configured package.

Unlike "stamp publish", which skips cleanup with a warning when the
registry or branch source is unreachable, plan fails loudly.`,
		Usage: "stamp plan [package-name...] [flags]",
		Examples: []cli.Example{
			{
				Description: "Plan for every configured package",
				Command:     "stamp plan",
			},
			{
				Description: "What a tighter ceiling would delete",
				Command:     "stamp plan @acme/widget --max-versions 50 --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("plan", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runPlan(ctx, &params, args, logger)
		},
	}
}

func runPlan(ctx context.Context, params *planParams, names []string, logger *slog.Logger) error {
	cfg, err := params.load()
	if err != nil {
		return err
	}

	policy := cfg.RetentionPolicy()
	if params.MaxVersions > 0 {
		policy.MaxVersions = params.MaxVersions
	}
	if params.MinAgeDays >= 0 {
		policy.MinAgeDays = params.MinAgeDays
	}
	if policy.MaxVersions <= 0 {
		return cli.Validation("retention is disabled in %s (pass --max-versions to plan anyway)", cfg.Path())
	}

	if len(names) == 0 {
		pkgs, err := packages(cfg, nil)
		if err != nil {
			return err
		}
		for _, pkg := range pkgs {
			packageManifest, err := pkg.LoadManifest()
			if err != nil {
				return err
			}
			names = append(names, packageManifest.Name)
		}
	}

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	oracle, err := newOracle(cfg, logger)
	if err != nil {
		return err
	}
	r, err := runner.New(runner.Config{Registry: reg, Oracle: oracle, Policy: policy, Logger: logger})
	if err != nil {
		return err
	}

	results := make([]planResult, 0, len(names))
	for _, name := range names {
		decision, err := r.Plan(ctx, name)
		if err != nil {
			return err
		}
		result := planResult{Name: name, Decision: decision}
		for _, candidate := range decision.Delete {
			if !preview.IsPreviewVersion(candidate.Version) {
				result.NotPreview = append(result.NotPreview, candidate.Version)
			}
		}
		if len(result.NotPreview) > 0 {
			logger.Warn("retention would delete versions that are not preview versions",
				"package", name, "versions", result.NotPreview)
		}
		results = append(results, result)
	}

	if done, err := params.EmitJSON(results); done {
		return err
	}

	for index, result := range results {
		if index > 0 {
			fmt.Fprintln(cli.Stdout)
		}
		decision := result.Decision
		fmt.Fprintf(cli.Stdout, "%s: %d versions (ceiling %d, min age %d days)\n",
			result.Name, decision.Total, policy.MaxVersions, policy.MinAgeDays)
		if decision.Needed == 0 {
			fmt.Fprintln(cli.Stdout, "  under the ceiling, nothing to delete")
			continue
		}
		fmt.Fprintf(cli.Stdout, "  need to delete %d, %d eligible\n", decision.Needed, decision.Eligible)
		if decision.Empty() {
			continue
		}
		writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
		fmt.Fprintln(writer, "  VERSION\tAGE\tTAGS")
		for _, candidate := range decision.Delete {
			tags := strings.Join(candidate.Tags, ", ")
			if tags == "" {
				tags = "(orphaned)"
			}
			if !preview.IsPreviewVersion(candidate.Version) {
				tags += " [not a preview version]"
			}
			fmt.Fprintf(writer, "  %s\t%.1fd\t%s\n", candidate.Version, candidate.AgeDays, tags)
		}
		writer.Flush()
	}
	return nil
}
