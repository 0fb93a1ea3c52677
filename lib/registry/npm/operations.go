// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package npm

import (
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bureau-foundation/stamp/lib/archive"
	"github.com/bureau-foundation/stamp/lib/manifest"
	"github.com/bureau-foundation/stamp/lib/registry"
)

// VersionExists implements registry.Registry.
func (client *Client) VersionExists(ctx context.Context, name, version string) (bool, error) {
	target := call{op: "exists", name: name, version: version}
	_, err := client.do(ctx, target, http.MethodGet, "/"+escapeName(name)+"/"+url.PathEscape(version), nil)
	if err == nil {
		return true, nil
	}
	if registry.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// ListVersions implements registry.Registry.
func (client *Client) ListVersions(ctx context.Context, name string) ([]registry.PublishedVersion, error) {
	target := call{op: "list", name: name}
	document, err := client.packument(ctx, target, false)
	if registry.IsNotFound(err) {
		return []registry.PublishedVersion{}, nil
	}
	if err != nil {
		return nil, err
	}

	versions, err := document.versions()
	if err != nil {
		return nil, target.fail(0, err)
	}
	times, err := document.times()
	if err != nil {
		return nil, target.fail(0, err)
	}
	tags, err := document.distTags()
	if err != nil {
		return nil, target.fail(0, err)
	}

	now := client.clock.Now()
	published := make(map[string]time.Time, len(versions))
	for version := range versions {
		publishedAt, ok := times[version]
		if !ok {
			// Counted toward the ceiling but treated as brand new, so the
			// age floor keeps it.
			client.logger.Warn("version has no publish time, treating as new",
				"package", name, "version", version)
			publishedAt = now
		}
		published[version] = publishedAt
	}
	return registry.AssembleVersions(published, tags), nil
}

// Publish implements registry.Registry.
func (client *Client) Publish(ctx context.Context, request registry.PublishRequest) error {
	target := call{op: "publish", name: request.Name, version: request.Version}
	if request.Tag == "" {
		return target.fail(0, errors.New("a dist-tag is required"))
	}

	manifestName := request.Manifest
	if manifestName == "" {
		manifestName = "package.json"
	}
	packageManifest, err := manifest.Load(filepath.Join(request.Dir, manifestName))
	if err != nil {
		return target.fail(0, err)
	}
	if packageManifest.Version != request.Version {
		return target.fail(0, fmt.Errorf("manifest declares version %q, expected %q", packageManifest.Version, request.Version))
	}
	versionDocument, err := packageManifest.Document()
	if err != nil {
		return target.fail(0, err)
	}

	tarball, err := packTarball(request.Dir)
	if err != nil {
		return target.fail(0, err)
	}
	filename := tarballName(request.Name, request.Version)
	tarballURL := client.baseURL + "/" + escapeName(request.Name) + "/-/" + filename

	sha1Sum := sha1.Sum(tarball)
	sha512Sum := sha512.Sum512(tarball)
	dist := map[string]any{
		"shasum":    hex.EncodeToString(sha1Sum[:]),
		"integrity": "sha512-" + base64.StdEncoding.EncodeToString(sha512Sum[:]),
		"tarball":   tarballURL,
	}
	if err := setField(versionDocument, "_id", request.Name+"@"+request.Version); err != nil {
		return target.fail(0, err)
	}
	if err := setField(versionDocument, "name", request.Name); err != nil {
		return target.fail(0, err)
	}
	if err := setField(versionDocument, "dist", dist); err != nil {
		return target.fail(0, err)
	}

	body := map[string]any{
		"_id":       request.Name,
		"name":      request.Name,
		"dist-tags": map[string]string{request.Tag: request.Version},
		"versions":  map[string]any{request.Version: versionDocument},
		"_attachments": map[string]any{
			request.Name + "-" + request.Version + ".tgz": map[string]any{
				"content_type": "application/octet-stream",
				"data":         base64.StdEncoding.EncodeToString(tarball),
				"length":       len(tarball),
			},
		},
	}
	if description, ok := versionDocument["description"]; ok {
		body["description"] = description
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return target.fail(0, fmt.Errorf("encoding publish body: %w", err))
	}

	_, err = client.do(ctx, target, http.MethodPut, "/"+escapeName(request.Name), encoded)
	if err != nil {
		return err
	}
	client.logger.Debug("published to npm registry",
		"package", request.Name,
		"version", request.Version,
		"tag", request.Tag,
		"tarball_bytes", len(tarball),
	)
	return nil
}

// AddTag implements registry.Registry.
func (client *Client) AddTag(ctx context.Context, name, version, tag string) error {
	target := call{op: "tag", name: name, version: version}
	encoded, err := json.Marshal(version)
	if err != nil {
		return target.fail(0, err)
	}
	path := "/-/package/" + escapeName(name) + "/dist-tags/" + url.PathEscape(tag)
	_, err = client.do(ctx, target, http.MethodPut, path, encoded)
	return err
}

// DeleteVersion implements registry.Registry. It removes the version
// from the packument, drops dist-tags that pointed at it (moving
// "latest" to the newest remaining version), and then deletes the
// tarball. A failed tarball delete is logged; the version is already
// gone from the registry's metadata by then.
func (client *Client) DeleteVersion(ctx context.Context, name, version string) error {
	target := call{op: "delete", name: name, version: version}
	document, err := client.packument(ctx, target, true)
	if err != nil {
		return err
	}
	rev, err := document.rev()
	if err != nil {
		return target.fail(0, err)
	}

	versions, err := document.versions()
	if err != nil {
		return target.fail(0, err)
	}
	if _, ok := versions[version]; !ok {
		return target.fail(http.StatusNotFound, registry.ErrNotFound)
	}
	delete(versions, version)

	if len(versions) == 0 {
		_, err := client.do(ctx, target, http.MethodDelete, "/"+escapeName(name)+"/-rev/"+url.PathEscape(rev), nil)
		return err
	}

	times, err := document.times()
	if err != nil {
		return target.fail(0, err)
	}
	tags, err := document.distTags()
	if err != nil {
		return target.fail(0, err)
	}
	for tag, tagged := range tags {
		if tagged == version {
			delete(tags, tag)
		}
	}
	if _, ok := tags["latest"]; !ok {
		if newest := newestVersion(versions, times); newest != "" {
			tags["latest"] = newest
		}
	}

	rawTimes, err := document.rawTimes()
	if err != nil {
		return target.fail(0, err)
	}
	delete(rawTimes, version)

	for key, value := range map[string]any{"versions": versions, "dist-tags": tags, "time": rawTimes} {
		if err := setField(document, key, value); err != nil {
			return target.fail(0, err)
		}
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		return target.fail(0, err)
	}
	if _, err := client.do(ctx, target, http.MethodPut, "/"+escapeName(name)+"/-rev/"+url.PathEscape(rev), encoded); err != nil {
		return err
	}

	client.deleteTarball(ctx, target, name, version)
	return nil
}

func (client *Client) deleteTarball(ctx context.Context, target call, name, version string) {
	document, err := client.packument(ctx, target, true)
	if err != nil {
		client.logger.Warn("re-reading packument before tarball delete failed",
			"package", name, "version", version, "error", err)
		return
	}
	rev, err := document.rev()
	if err != nil {
		client.logger.Warn("packument has no revision", "package", name, "error", err)
		return
	}
	path := "/" + escapeName(name) + "/-/" + tarballName(name, version) + "/-rev/" + url.PathEscape(rev)
	if _, err := client.do(ctx, target, http.MethodDelete, path, nil); err != nil && !registry.IsNotFound(err) {
		client.logger.Warn("tarball delete failed",
			"package", name, "version", version, "error", err)
	}
}

func (client *Client) packument(ctx context.Context, target call, write bool) (packument, error) {
	path := "/" + escapeName(target.name)
	if write {
		path += "?write=true"
	}
	body, err := client.do(ctx, target, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var document packument
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, target.fail(0, fmt.Errorf("decoding packument: %w", err))
	}
	return document, nil
}

// packument is the registry's document for one package. Fields stamp
// does not interpret are kept raw so a write-back preserves them.
type packument map[string]json.RawMessage

func (p packument) rev() (string, error) {
	var rev string
	if err := decodeField(p, "_rev", &rev); err != nil {
		return "", err
	}
	if rev == "" {
		return "", errors.New("packument has no _rev")
	}
	return rev, nil
}

func (p packument) versions() (map[string]json.RawMessage, error) {
	versions := map[string]json.RawMessage{}
	if err := decodeField(p, "versions", &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (p packument) distTags() (map[string]string, error) {
	tags := map[string]string{}
	if err := decodeField(p, "dist-tags", &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (p packument) rawTimes() (map[string]json.RawMessage, error) {
	times := map[string]json.RawMessage{}
	if err := decodeField(p, "time", &times); err != nil {
		return nil, err
	}
	return times, nil
}

// times returns version publish times. The "created" and "modified"
// bookkeeping entries and unparseable values are skipped.
func (p packument) times() (map[string]time.Time, error) {
	raw, err := p.rawTimes()
	if err != nil {
		return nil, err
	}
	times := make(map[string]time.Time, len(raw))
	for key, value := range raw {
		if key == "created" || key == "modified" {
			continue
		}
		var text string
		if json.Unmarshal(value, &text) != nil {
			continue
		}
		parsed, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			continue
		}
		times[key] = parsed
	}
	return times, nil
}

func decodeField(document map[string]json.RawMessage, key string, into any) error {
	raw, ok := document[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decoding packument field %q: %w", key, err)
	}
	return nil
}

func setField(document map[string]json.RawMessage, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding field %q: %w", key, err)
	}
	document[key] = encoded
	return nil
}

func newestVersion(versions map[string]json.RawMessage, times map[string]time.Time) string {
	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		left, right := times[names[i]], times[names[j]]
		if !left.Equal(right) {
			return left.After(right)
		}
		return names[i] > names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// packTarball builds the gzipped tarball npm expects: every file under
// a "package/" prefix, without dependency trees, VCS metadata, or
// credential files.
func packTarball(dir string) ([]byte, error) {
	tarball, _, err := archive.PackBytes(dir, archive.Options{
		Prefix:  "package",
		Exclude: excludeFromTarball,
	})
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", dir, err)
	}
	return archive.Compress(tarball, archive.CompressionGzip)
}

func excludeFromTarball(relativePath string) bool {
	for _, segment := range strings.Split(relativePath, "/") {
		if segment == "node_modules" || segment == ".git" {
			return true
		}
	}
	base := relativePath[strings.LastIndex(relativePath, "/")+1:]
	return base == ".npmrc"
}
