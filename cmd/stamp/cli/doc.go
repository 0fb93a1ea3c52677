// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for stamp.
//
// The central type is [Command], a named subcommand with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// [Command.Execute] handles flag parsing, subcommand routing, and
// structured help output with examples. Flag sets are usually built from
// tagged parameter structs with [FlagsFromParams].
//
// When a user types an unknown subcommand or flag, the framework
// suggests the closest known name by Levenshtein distance (at most 3).
//
// Run functions receive a logger from [NewCommandLogger]: text on a
// terminal, JSON otherwise, at debug level when the command defines a
// --verbose flag and it is set. Errors may carry an [ErrorCategory]
// (see [ToolError] and [Classify]) so --json callers get a stable
// machine-readable failure kind.
package cli
