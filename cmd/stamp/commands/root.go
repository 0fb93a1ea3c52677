// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import "github.com/bureau-foundation/stamp/cmd/stamp/cli"

// Root builds and returns the stamp command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "stamp",
		Description: `stamp: content-addressed preview versions for CI.

Every push publishes each package as <base>-preview.<fingerprint>, where
the fingerprint is a digest of the build output. Branches that build
identical output share one version and each adds its own branch-<name>
tag. Old versions whose branches are all gone are retired once a
package crosses its version ceiling.`,
		Subcommands: []*cli.Command{
			publishCommand(),
			planCommand(),
			resolveCommand(),
			fingerprintCommand(),
			contentsCommand(),
			versionCommand(),
		},
	}
}
