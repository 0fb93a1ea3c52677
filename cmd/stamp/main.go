// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/stamp/cmd/stamp/cli"
	"github.com/bureau-foundation/stamp/cmd/stamp/commands"
	"github.com/bureau-foundation/stamp/lib/process"
)

// Usage and configuration errors exit 2 so CI logs separate them from
// registry or filesystem failures.
func main() {
	err := run()
	if err != nil && cli.Classify(err) == cli.CategoryValidation {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	process.Exit(err)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}
