// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names a digest function.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	BLAKE3  Algorithm = "blake3"
	BLAKE2b Algorithm = "blake2b"
)

// DefaultLength is the number of hex characters in a fingerprint when
// Options.Length is zero.
const DefaultLength = 12

// MinLength and MaxLength bound Options.Length. Every algorithm
// produces a 32-byte digest, so 64 hex characters is the full digest.
const (
	MinLength = 8
	MaxLength = 64
)

// Fingerprint is a fixed-width lowercase hex digest prefix.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Options configures a Hasher. The zero value means SHA-256 with
// DefaultLength.
type Options struct {
	Algorithm Algorithm
	Length    int
}

// Hasher computes directory fingerprints. A Hasher is immutable and
// safe for concurrent use.
type Hasher struct {
	algorithm Algorithm
	length    int
}

// IOError reports a filesystem failure while fingerprinting: a missing
// or non-directory root, or a file that could not be read mid-walk.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("fingerprint %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrNotDirectory is wrapped in an IOError when the root exists but is
// not a directory.
var ErrNotDirectory = errors.New("not a directory")

// New returns a Hasher for options, or an error if the algorithm is
// unknown or the length is out of range.
func New(options Options) (*Hasher, error) {
	algorithm := options.Algorithm
	if algorithm == "" {
		algorithm = SHA256
	}
	switch algorithm {
	case SHA256, BLAKE3, BLAKE2b:
	default:
		return nil, fmt.Errorf("unknown fingerprint algorithm %q (want %q, %q, or %q)", algorithm, SHA256, BLAKE3, BLAKE2b)
	}

	length := options.Length
	if length == 0 {
		length = DefaultLength
	}
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("fingerprint length %d out of range [%d, %d]", length, MinLength, MaxLength)
	}

	return &Hasher{algorithm: algorithm, length: length}, nil
}

// Default returns the SHA-256, 12-character Hasher.
func Default() *Hasher {
	return &Hasher{algorithm: SHA256, length: DefaultLength}
}

// Algorithm returns the configured digest algorithm.
func (h *Hasher) Algorithm() Algorithm { return h.algorithm }

// Length returns the configured fingerprint width in hex characters.
func (h *Hasher) Length() int { return h.length }

// Directory fingerprints the tree rooted at root. Returns *IOError if
// root does not exist, is not a directory, or any file cannot be read.
func (h *Hasher) Directory(root string) (Fingerprint, error) {
	files, err := Files(root)
	if err != nil {
		return "", err
	}

	digest := h.newDigest()
	var lengthPrefix [8]byte
	for _, relative := range files {
		full := filepath.Join(root, filepath.FromSlash(relative))
		file, err := os.Open(full)
		if err != nil {
			return "", &IOError{Path: full, Err: err}
		}

		info, err := file.Stat()
		if err != nil {
			file.Close()
			return "", &IOError{Path: full, Err: err}
		}

		digest.Write([]byte(relative))
		digest.Write([]byte{0})
		binary.BigEndian.PutUint64(lengthPrefix[:], uint64(info.Size()))
		digest.Write(lengthPrefix[:])

		written, err := io.Copy(digest, file)
		file.Close()
		if err != nil {
			return "", &IOError{Path: full, Err: err}
		}
		if written != info.Size() {
			return "", &IOError{Path: full, Err: fmt.Errorf("file changed size during hashing (%d bytes read, %d expected)", written, info.Size())}
		}
	}

	return Fingerprint(hex.EncodeToString(digest.Sum(nil))[:h.length]), nil
}

func (h *Hasher) newDigest() hash.Hash {
	switch h.algorithm {
	case BLAKE3:
		return blake3.New()
	case BLAKE2b:
		// Unkeyed New256 cannot fail.
		digest, _ := blake2b.New256(nil)
		return digest
	default:
		return sha256.New()
	}
}

// Files returns the slash-separated relative paths of every regular
// file under root, sorted lexicographically. Symlinks and other
// non-regular entries are skipped. This is the exact file set that
// Directory hashes.
func Files(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &IOError{Path: root, Err: err}
	}
	// WalkDir does not descend into a symlinked root; walk its target.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &IOError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &IOError{Path: root, Err: ErrNotDirectory}
	}

	var files []string
	err = filepath.WalkDir(resolved, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &IOError{Path: path, Err: walkErr}
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		relative, err := filepath.Rel(resolved, path)
		if err != nil {
			return &IOError{Path: path, Err: err}
		}
		files = append(files, filepath.ToSlash(relative))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
