// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/stamp/lib/archive"
	"github.com/bureau-foundation/stamp/lib/clock"
	"github.com/bureau-foundation/stamp/lib/codec"
	"github.com/bureau-foundation/stamp/lib/registry"
)

// Options configure a Store.
type Options struct {
	// Clock stamps publish times. Defaults to the real clock.
	Clock clock.Clock

	// Compression names the codec for stored archives: "zstd" (the
	// default when empty), "lz4", "gzip", or "none".
	Compression string

	Logger *slog.Logger
}

// versionRecord is the CBOR content of versions/<v>.cbor.
type versionRecord struct {
	Name        string    `cbor:"name"`
	Version     string    `cbor:"version"`
	PublishedAt time.Time `cbor:"published_at"`
	Compression uint8     `cbor:"compression"`
	Size        int64     `cbor:"size"`
	Files       int       `cbor:"files"`
	SHA256      string    `cbor:"sha256"`
}

// tagIndex is the CBOR content of tags.cbor.
type tagIndex struct {
	Tags map[string]string `cbor:"tags"`
}

// Store implements registry.Registry over a directory tree.
type Store struct {
	root        string
	clock       clock.Clock
	compression archive.Compression
	logger      *slog.Logger
}

var _ registry.Registry = (*Store)(nil)

// New opens (creating if needed) a directory registry at root.
func New(root string, options Options) (*Store, error) {
	if root == "" {
		return nil, errors.New("dirstore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("dirstore: creating %s: %w", root, err)
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	compression := archive.CompressionZstd
	if options.Compression != "" {
		parsed, err := archive.ParseCompression(options.Compression)
		if err != nil {
			return nil, fmt.Errorf("dirstore: %w", err)
		}
		compression = parsed
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Store{
		root:        root,
		clock:       options.Clock,
		compression: compression,
		logger:      options.Logger,
	}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// VersionExists implements registry.Registry.
func (s *Store) VersionExists(ctx context.Context, name, version string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	recordPath, err := s.recordPath(name, version)
	if err != nil {
		return false, &registry.Error{Op: "exists", Package: name, Version: version, Err: err}
	}
	_, err = os.Stat(recordPath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, &registry.Error{Op: "exists", Package: name, Version: version, Err: err}
	}
}

// ListVersions implements registry.Registry.
func (s *Store) ListVersions(ctx context.Context, name string) ([]registry.PublishedVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	packageDir, err := s.packageDir(name)
	if err != nil {
		return nil, &registry.Error{Op: "list", Package: name, Err: err}
	}

	entries, err := os.ReadDir(filepath.Join(packageDir, "versions"))
	if errors.Is(err, os.ErrNotExist) {
		return []registry.PublishedVersion{}, nil
	}
	if err != nil {
		return nil, &registry.Error{Op: "list", Package: name, Err: err}
	}

	published := make(map[string]time.Time)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cbor") {
			continue
		}
		record, err := readRecord(filepath.Join(packageDir, "versions", entry.Name()))
		if err != nil {
			// A half-written or corrupt record must not hide the rest.
			s.logger.Warn("skipping unreadable version record",
				"package", name, "file", entry.Name(), "error", err)
			continue
		}
		published[record.Version] = record.PublishedAt
	}

	tags, err := readTags(packageDir)
	if err != nil {
		return nil, &registry.Error{Op: "list", Package: name, Err: err}
	}
	return registry.AssembleVersions(published, tags.Tags), nil
}

// Publish implements registry.Registry.
func (s *Store) Publish(ctx context.Context, request registry.PublishRequest) error {
	fail := func(err error) error {
		return &registry.Error{Op: "publish", Package: request.Name, Version: request.Version, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if request.Version == "" {
		return fail(errors.New("version is required"))
	}

	packageDir, err := s.packageDir(request.Name)
	if err != nil {
		return fail(err)
	}
	recordPath, err := s.recordPath(request.Name, request.Version)
	if err != nil {
		return fail(err)
	}

	// Pack outside the lock; it reads only the package directory.
	tarball, summary, err := archive.PackBytes(request.Dir, archive.Options{})
	if err != nil {
		return fail(fmt.Errorf("packing %s: %w", request.Dir, err))
	}
	compressed, err := archive.Compress(tarball, s.compression)
	if err != nil {
		return fail(err)
	}
	digest := sha256.Sum256(compressed)

	return s.withLock(packageDir, func() error {
		if _, err := os.Stat(recordPath); err == nil {
			return fail(registry.ErrConflict)
		}

		archivePath := strings.TrimSuffix(recordPath, ".cbor") + s.compression.Extension()
		if err := writeFileAtomic(archivePath, compressed); err != nil {
			return fail(fmt.Errorf("writing archive: %w", err))
		}

		record := versionRecord{
			Name:        request.Name,
			Version:     request.Version,
			PublishedAt: s.clock.Now().UTC(),
			Compression: uint8(s.compression),
			Size:        int64(len(compressed)),
			Files:       summary.Files,
			SHA256:      hex.EncodeToString(digest[:]),
		}
		if err := createRecord(recordPath, record); err != nil {
			if errors.Is(err, os.ErrExist) {
				return fail(registry.ErrConflict)
			}
			os.Remove(archivePath)
			return fail(err)
		}

		if request.Tag != "" {
			if err := s.updateTags(packageDir, func(tags map[string]string) {
				tags[request.Tag] = request.Version
			}); err != nil {
				return fail(fmt.Errorf("tagging new version: %w", err))
			}
		}

		s.logger.Debug("stored version",
			"package", request.Name,
			"version", request.Version,
			"files", summary.Files,
			"bytes", len(compressed),
			"compression", s.compression.String(),
		)
		return nil
	})
}

// AddTag implements registry.Registry.
func (s *Store) AddTag(ctx context.Context, name, version, tag string) error {
	fail := func(err error) error {
		return &registry.Error{Op: "tag", Package: name, Version: version, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if tag == "" {
		return fail(errors.New("tag is required"))
	}
	packageDir, err := s.packageDir(name)
	if err != nil {
		return fail(err)
	}
	recordPath, err := s.recordPath(name, version)
	if err != nil {
		return fail(err)
	}

	return s.withLock(packageDir, func() error {
		if _, err := os.Stat(recordPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fail(registry.ErrNotFound)
			}
			return fail(err)
		}
		if err := s.updateTags(packageDir, func(tags map[string]string) {
			tags[tag] = version
		}); err != nil {
			return fail(err)
		}
		return nil
	})
}

// DeleteVersion implements registry.Registry.
func (s *Store) DeleteVersion(ctx context.Context, name, version string) error {
	fail := func(err error) error {
		return &registry.Error{Op: "delete", Package: name, Version: version, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	packageDir, err := s.packageDir(name)
	if err != nil {
		return fail(err)
	}
	recordPath, err := s.recordPath(name, version)
	if err != nil {
		return fail(err)
	}

	return s.withLock(packageDir, func() error {
		record, err := readRecord(recordPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fail(registry.ErrNotFound)
			}
			return fail(err)
		}

		if err := s.updateTags(packageDir, func(tags map[string]string) {
			for tag, target := range tags {
				if target == version {
					delete(tags, tag)
				}
			}
		}); err != nil {
			return fail(err)
		}

		compression := archive.Compression(record.Compression)
		archivePath := strings.TrimSuffix(recordPath, ".cbor") + compression.Extension()
		if err := os.Remove(recordPath); err != nil {
			return fail(err)
		}
		if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("removing archive of deleted version",
				"package", name, "version", version, "error", err)
		}
		return nil
	})
}

// Contents returns the files stored for name@version after checking
// the archive digest. The registry contract has no read path; this is
// what "stamp contents" uses to inspect a directory registry.
func (s *Store) Contents(ctx context.Context, name, version string) ([]archive.Entry, error) {
	fail := func(err error) error {
		return &registry.Error{Op: "fetch", Package: name, Version: version, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recordPath, err := s.recordPath(name, version)
	if err != nil {
		return nil, fail(err)
	}
	record, err := readRecord(recordPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fail(registry.ErrNotFound)
		}
		return nil, fail(err)
	}

	compression := archive.Compression(record.Compression)
	compressed, err := os.ReadFile(strings.TrimSuffix(recordPath, ".cbor") + compression.Extension())
	if err != nil {
		return nil, fail(err)
	}
	digest := sha256.Sum256(compressed)
	if hex.EncodeToString(digest[:]) != record.SHA256 {
		return nil, fail(fmt.Errorf("archive digest mismatch: record says %s", record.SHA256))
	}
	tarball, err := archive.Decompress(compressed, compression)
	if err != nil {
		return nil, fail(err)
	}
	entries, err := archive.Entries(bytes.NewReader(tarball))
	if err != nil {
		return nil, fail(err)
	}
	return entries, nil
}

func (s *Store) packageDir(name string) (string, error) {
	escaped, err := escape("package name", name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, escaped), nil
}

func (s *Store) recordPath(name, version string) (string, error) {
	packageDir, err := s.packageDir(name)
	if err != nil {
		return "", err
	}
	escaped, err := escape("version", version)
	if err != nil {
		return "", err
	}
	return filepath.Join(packageDir, "versions", escaped+".cbor"), nil
}

// escape maps a name to a single safe path component.
func escape(field, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	escaped := url.PathEscape(value)
	if escaped == "." || escaped == ".." {
		return "", fmt.Errorf("invalid %s %q", field, value)
	}
	return escaped, nil
}

// withLock runs fn holding an exclusive flock on packageDir/.lock.
func (s *Store) withLock(packageDir string, fn func() error) error {
	if err := os.MkdirAll(filepath.Join(packageDir, "versions"), 0o755); err != nil {
		return fmt.Errorf("creating package directory: %w", err)
	}
	lockFile, err := os.OpenFile(filepath.Join(packageDir, ".lock"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("locking %s: %w", packageDir, err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	return fn()
}

// updateTags applies mutate to the tag index and writes it back. The
// caller holds the package lock.
func (s *Store) updateTags(packageDir string, mutate func(map[string]string)) error {
	index, err := readTags(packageDir)
	if err != nil {
		return err
	}
	mutate(index.Tags)
	data, err := codec.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding tag index: %w", err)
	}
	return writeFileAtomic(filepath.Join(packageDir, "tags.cbor"), data)
}

func readTags(packageDir string) (tagIndex, error) {
	data, err := os.ReadFile(filepath.Join(packageDir, "tags.cbor"))
	if errors.Is(err, os.ErrNotExist) {
		return tagIndex{Tags: map[string]string{}}, nil
	}
	if err != nil {
		return tagIndex{}, fmt.Errorf("reading tag index: %w", err)
	}
	var index tagIndex
	if err := codec.Unmarshal(data, &index); err != nil {
		return tagIndex{}, fmt.Errorf("decoding tag index%s: %w", describe(data), err)
	}
	if index.Tags == nil {
		index.Tags = map[string]string{}
	}
	return index, nil
}

func readRecord(path string) (versionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return versionRecord{}, err
	}
	var record versionRecord
	if err := codec.Unmarshal(data, &record); err != nil {
		return versionRecord{}, fmt.Errorf("decoding %s%s: %w", filepath.Base(path), describe(data), err)
	}
	return record, nil
}

// maxDiagnostic caps how much of a malformed file is quoted in errors.
const maxDiagnostic = 200

// describe quotes well-formed CBOR of the wrong shape in diagnostic
// notation. Bytes that are not CBOR at all yield "".
func describe(data []byte) string {
	notation, err := codec.Diagnose(data)
	if err != nil {
		return ""
	}
	if len(notation) > maxDiagnostic {
		notation = notation[:maxDiagnostic] + "..."
	}
	return " (found " + notation + ")"
}

// createRecord writes a new version record, failing with os.ErrExist
// if one is already present.
func createRecord(path string, record versionRecord) error {
	data, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding version record: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("writing version record: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing version record: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	success = true
	return nil
}
