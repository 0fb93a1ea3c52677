// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bureau-foundation/stamp/lib/fingerprint"
)

// epoch is the modification time recorded for every entry. npm uses
// the same instant so that packed tarballs are reproducible.
var epoch = time.Date(1985, time.October, 26, 8, 15, 0, 0, time.UTC)

// Options control Pack.
type Options struct {
	// Prefix is prepended to every entry name, e.g. "package" for npm
	// tarballs. Empty means entries sit at the archive root.
	Prefix string

	// Exclude reports whether a relative slash path should be left out.
	// Nil includes everything.
	Exclude func(relativePath string) bool
}

// Summary describes a packed archive.
type Summary struct {
	Files     int   `json:"files"`
	TotalSize int64 `json:"total_size"`
}

// Pack writes a tar stream of dir to w.
func Pack(w io.Writer, dir string, options Options) (Summary, error) {
	files, err := fingerprint.Files(dir)
	if err != nil {
		return Summary{}, err
	}
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("resolving %s: %w", dir, err)
	}

	var summary Summary
	writer := tar.NewWriter(w)
	for _, relative := range files {
		if options.Exclude != nil && options.Exclude(relative) {
			continue
		}
		size, err := addFile(writer, root, relative, options.Prefix)
		if err != nil {
			return Summary{}, err
		}
		summary.Files++
		summary.TotalSize += size
	}
	if err := writer.Close(); err != nil {
		return Summary{}, fmt.Errorf("finishing tar stream: %w", err)
	}
	return summary, nil
}

// PackBytes is Pack into memory.
func PackBytes(dir string, options Options) ([]byte, Summary, error) {
	var buffer bytes.Buffer
	summary, err := Pack(&buffer, dir, options)
	if err != nil {
		return nil, Summary{}, err
	}
	return buffer.Bytes(), summary, nil
}

func addFile(writer *tar.Writer, root, relative, prefix string) (int64, error) {
	full := filepath.Join(root, filepath.FromSlash(relative))
	file, err := os.Open(full)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", relative, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", relative, err)
	}

	mode := int64(0o644)
	if info.Mode().Perm()&0o111 != 0 {
		mode = 0o755
	}
	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     path.Join(prefix, relative),
		Mode:     mode,
		Size:     info.Size(),
		ModTime:  epoch,
		Format:   tar.FormatPAX,
	}
	if err := writer.WriteHeader(header); err != nil {
		return 0, fmt.Errorf("writing header for %s: %w", relative, err)
	}
	written, err := io.Copy(writer, io.LimitReader(file, info.Size()))
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", relative, err)
	}
	if written != info.Size() {
		return 0, fmt.Errorf("%s changed size while packing", relative)
	}
	return written, nil
}

// Entry is one file read back from an archive.
type Entry struct {
	Name string
	Mode int64
	Data []byte
}

// ErrUnsafePath is returned by Unpack for entries that would escape the
// archive root.
var ErrUnsafePath = errors.New("archive entry escapes root")

// Entries reads every regular file from a tar stream.
func Entries(r io.Reader) ([]Entry, error) {
	reader := tar.NewReader(r)
	var entries []Entry
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar stream: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		cleaned := path.Clean(header.Name)
		if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			return nil, fmt.Errorf("%s: %w", header.Name, ErrUnsafePath)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", header.Name, err)
		}
		entries = append(entries, Entry{Name: cleaned, Mode: header.Mode, Data: data})
	}
}
