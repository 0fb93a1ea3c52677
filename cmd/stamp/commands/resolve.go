// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/stamp/cmd/stamp/cli"
	"github.com/bureau-foundation/stamp/lib/preview"
	"github.com/bureau-foundation/stamp/lib/runner"
)

type resolveParams struct {
	cli.JSONOutput
	configParams
	Branch      string   `json:"branch"      flag:"branch,b"    desc:"branch being built (default: CI environment, then git HEAD)"`
	Packages    []string `json:"packages"    flag:"package,p"   desc:"only resolve the configured package with this dir (repeatable)"`
	Declared    string   `json:"declared"    flag:"declared"    desc:"declared version; with --fingerprint, resolve without a config file"`
	Fingerprint string   `json:"fingerprint" flag:"fingerprint" desc:"content fingerprint to use with --declared"`
}

// resolvedPackage is the JSON shape of one resolved package.
type resolvedPackage struct {
	Name string `json:"name,omitempty"`
	preview.Resolved
}

func resolveCommand() *cli.Command {
	var params resolveParams
	return &cli.Command{
		Name:    "resolve",
		Summary: "Print the preview version and branch tag",
		Description: `Compute the preview version and branch tag each configured package
would be published under, without contacting the registry.

With --declared and --fingerprint, resolves a single version from the
given values and needs no config file.`,
		Usage: "stamp resolve [flags]",
		Examples: []cli.Example{
			{
				Description: "Resolve every configured package for the current branch",
				Command:     "stamp resolve",
			},
			{
				Description: "Resolve explicit values",
				Command:     "stamp resolve --declared 1.0.0-in-development --fingerprint abc123def456 --branch feature/login",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("resolve", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			return runResolve(ctx, &params)
		},
	}
}

func runResolve(ctx context.Context, params *resolveParams) error {
	var results []resolvedPackage

	if params.Declared != "" || params.Fingerprint != "" {
		if params.Declared == "" || params.Fingerprint == "" {
			return cli.Validation("--declared and --fingerprint must be given together")
		}
		detection, err := detectBranch(ctx, nil, params.Branch)
		if err != nil {
			return err
		}
		resolved, err := preview.Resolve(params.Declared, params.Fingerprint, detection.Branch)
		if err != nil {
			return err
		}
		results = append(results, resolvedPackage{Resolved: resolved})
	} else {
		cfg, err := params.load()
		if err != nil {
			return err
		}
		pkgs, err := packages(cfg, params.Packages)
		if err != nil {
			return err
		}
		hasher, err := newHasher(cfg)
		if err != nil {
			return err
		}
		detection, err := detectBranch(ctx, cfg, params.Branch)
		if err != nil {
			return err
		}
		for _, pkg := range pkgs {
			prepared, err := runner.Prepare(hasher, pkg, detection.Branch)
			if err != nil {
				return fmt.Errorf("%s: %w", pkg.Dir, err)
			}
			results = append(results, resolvedPackage{Name: prepared.Name, Resolved: prepared.Resolved})
		}
	}

	if done, err := params.EmitJSON(results); done {
		return err
	}

	if len(results) == 1 && results[0].Name == "" {
		fmt.Fprintf(cli.Stdout, "version: %s\ntag:     %s\n", results[0].Version, results[0].Tag)
		return nil
	}
	writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "PACKAGE\tVERSION\tTAG")
	for _, result := range results {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", result.Name, result.Version, result.Tag)
	}
	return writer.Flush()
}
