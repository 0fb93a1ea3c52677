// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the stamp command tree.
//
// Commands that touch a registry read a stamp.yaml chosen by --config
// or STAMP_CONFIG (see lib/config). The registry adapter and the branch
// source are built from that file by [newRegistry] and [newOracle].
package commands
