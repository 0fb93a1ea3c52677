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
	"github.com/bureau-foundation/stamp/lib/config"
	"github.com/bureau-foundation/stamp/lib/registry/dirstore"
)

type contentsParams struct {
	cli.JSONOutput
	configParams
}

type contentsEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Size int    `json:"size"`
}

func contentsCommand() *cli.Command {
	var params contentsParams
	return &cli.Command{
		Name:    "contents",
		Summary: "List the files stored for a version in a directory registry",
		Description: `List the files of one published version in a directory registry,
after checking the stored archive against its recorded digest. Use it
to compare what two branches actually published.

Only directory registries are supported; npm serves tarballs directly.`,
		Usage: "stamp contents <package-name> <version> [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect a preview version",
				Command:     "stamp contents @acme/widget 1.0.0-preview.0123456789ab",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("contents", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return cli.Validation("usage: stamp contents <package-name> <version>")
			}
			return runContents(ctx, &params, args[0], args[1], logger)
		},
	}
}

func runContents(ctx context.Context, params *contentsParams, name, version string, logger *slog.Logger) error {
	cfg, err := params.load()
	if err != nil {
		return err
	}
	if cfg.Registry.Kind != config.RegistryDirectory {
		return cli.Validation("contents needs a %q registry, %s configures %q",
			config.RegistryDirectory, cfg.Path(), cfg.Registry.Kind)
	}
	store, err := dirstore.New(cfg.RegistryDir(), dirstore.Options{Logger: logger})
	if err != nil {
		return err
	}

	files, err := store.Contents(ctx, name, version)
	if err != nil {
		return err
	}
	entries := make([]contentsEntry, len(files))
	for i, file := range files {
		entries[i] = contentsEntry{Path: file.Name, Mode: fmt.Sprintf("%04o", file.Mode), Size: len(file.Data)}
	}

	if done, err := params.EmitJSON(entries); done {
		return err
	}
	writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "MODE\tSIZE\tPATH")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%d\t%s\n", entry.Mode, entry.Size, entry.Path)
	}
	return writer.Flush()
}
