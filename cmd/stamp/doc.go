// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Stamp publishes content-addressed preview versions of packages from
// CI and retires stale ones. It provides subcommands to publish every
// configured package (publish), inspect the retention plan (plan),
// compute versions without publishing (resolve, fingerprint), and
// print build information (version).
package main
