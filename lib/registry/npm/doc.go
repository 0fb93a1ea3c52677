// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package npm implements registry.Registry against the npm registry
// HTTP API, as served by registry.npmjs.org, GitHub Packages, Verdaccio,
// and Artifactory.
//
// Endpoints used:
//
//	GET    /<name>                          packument (versions, time, dist-tags)
//	GET    /<name>/<version>                single version manifest
//	PUT    /<name>                          publish with base64 tarball attachment
//	PUT    /-/package/<name>/dist-tags/<t>  point a dist-tag at a version
//	PUT    /<name>/-rev/<rev>               write back a packument without a version
//	DELETE /<name>/-/<file>/-rev/<rev>      remove the version's tarball
//	DELETE /<name>/-rev/<rev>               unpublish the last remaining version
//
// Scoped names are escaped as "@scope%2fname". Registries answer a
// publish over an existing version with 403 ("cannot publish over the
// previously published versions") or 409; both map to
// registry.ErrConflict.
package npm
