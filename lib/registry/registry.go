// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"sort"
	"time"
)

// Registry is the artifact store stamp publishes to and cleans up.
// Implementations must be safe for use by one goroutine at a time;
// stamp processes packages sequentially.
type Registry interface {
	// VersionExists reports whether name@version has been published.
	// An unknown package is not an error: it has no versions.
	VersionExists(ctx context.Context, name, version string) (bool, error)

	// ListVersions returns every published version of name with the
	// tags currently pointing at it. An unknown package returns an
	// empty slice.
	ListVersions(ctx context.Context, name string) ([]PublishedVersion, error)

	// Publish uploads the package in request.Dir as request.Version
	// with request.Tag as its initial tag. Returns an error satisfying
	// IsConflict if the version already exists.
	Publish(ctx context.Context, request PublishRequest) error

	// AddTag points tag at name@version, moving it if it already
	// points elsewhere.
	AddTag(ctx context.Context, name, version, tag string) error

	// DeleteVersion removes name@version and every tag pointing at it.
	DeleteVersion(ctx context.Context, name, version string) error
}

// PublishRequest describes one publish operation.
type PublishRequest struct {
	// Name is the registry-qualified package name.
	Name string

	// Version is the exact version to create.
	Version string

	// Tag is attached to the new version on success.
	Tag string

	// Dir is the package directory; its manifest already carries
	// Version when Publish is called.
	Dir string

	// Manifest is the manifest file inside Dir (e.g. package.json).
	Manifest string
}

// PublishedVersion is one version as observed in the registry.
type PublishedVersion struct {
	Version     string    `json:"version"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
}

// Orphaned reports whether no tag points at the version.
func (v PublishedVersion) Orphaned() bool { return len(v.Tags) == 0 }

// AssembleVersions joins a version->time map and a tag->version map
// into PublishedVersions sorted by publish time, then version. Tags
// pointing at versions absent from published are dropped. Adapters
// whose wire format stores tags separately from versions (npm
// dist-tags, the directory registry's tag index) share this.
func AssembleVersions(published map[string]time.Time, tags map[string]string) []PublishedVersion {
	tagsByVersion := make(map[string][]string)
	for tag, version := range tags {
		tagsByVersion[version] = append(tagsByVersion[version], tag)
	}

	versions := make([]PublishedVersion, 0, len(published))
	for version, publishedAt := range published {
		versionTags := tagsByVersion[version]
		if versionTags == nil {
			versionTags = []string{}
		}
		sort.Strings(versionTags)
		versions = append(versions, PublishedVersion{
			Version:     version,
			Tags:        versionTags,
			PublishedAt: publishedAt,
		})
	}

	sort.Slice(versions, func(i, j int) bool {
		if !versions[i].PublishedAt.Equal(versions[j].PublishedAt) {
			return versions[i].PublishedAt.Before(versions[j].PublishedAt)
		}
		return versions[i].Version < versions[j].Version
	})
	return versions
}
