// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/stamp/cmd/stamp/cli"
	"github.com/bureau-foundation/stamp/lib/fingerprint"
)

type fingerprintParams struct {
	cli.JSONOutput
	Algorithm string `json:"algorithm" flag:"algorithm" desc:"digest algorithm (sha256, blake3, or blake2b)" default:"sha256"`
	Length    int    `json:"length"    flag:"length"    desc:"fingerprint width in hex characters (8-64)" default:"12"`
}

type fingerprintResult struct {
	Directory   string `json:"directory"`
	Algorithm   string `json:"algorithm"`
	Files       int    `json:"files"`
	Fingerprint string `json:"fingerprint"`
}

func fingerprintCommand() *cli.Command {
	var params fingerprintParams
	return &cli.Command{
		Name:    "fingerprint",
		Summary: "Print the content fingerprint of a directory",
		Description: `Hash every regular file under a directory, in sorted path order, and
print the truncated digest. Identical trees give identical fingerprints
regardless of timestamps, permissions, or listing order. Symlinks are
skipped.`,
		Usage: "stamp fingerprint <dir> [flags]",
		Examples: []cli.Example{
			{
				Description: "Fingerprint a build output",
				Command:     "stamp fingerprint packages/widget/dist",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("fingerprint", &params)
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("usage: stamp fingerprint <dir>")
			}
			hasher, err := fingerprint.New(fingerprint.Options{
				Algorithm: fingerprint.Algorithm(params.Algorithm),
				Length:    params.Length,
			})
			if err != nil {
				return cli.Validation("%w", err)
			}

			files, err := fingerprint.Files(args[0])
			if err != nil {
				return err
			}
			fp, err := hasher.Directory(args[0])
			if err != nil {
				return err
			}

			result := fingerprintResult{
				Directory:   args[0],
				Algorithm:   string(hasher.Algorithm()),
				Files:       len(files),
				Fingerprint: fp.String(),
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			fmt.Fprintln(cli.Stdout, result.Fingerprint)
			return nil
		},
	}
}
