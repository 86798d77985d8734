package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.OutputHasher = (*Hasher)(nil)

// Hasher fingerprints module output directories.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeOutputHash fingerprints every file below dir by relative path and content.
// Files are visited in lexical order so the result is independent of the
// directory's location and of file system iteration order.
func (h *Hasher) ComputeOutputHash(dir string) (string, error) {
	hasher := xxhash.New()

	for path := range h.walker.WalkFiles(dir, nil) {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, domain.ErrOutputHashComputationFailed.Error()), "path", path)
		}
		_, _ = hasher.WriteString(filepath.ToSlash(rel))
		_, _ = hasher.Write([]byte{0})

		sum, err := h.ComputeFileHash(path)
		if err != nil {
			return "", zerr.Wrap(err, domain.ErrOutputHashComputationFailed.Error())
		}
		if err := binary.Write(hasher, binary.LittleEndian, sum); err != nil {
			return "", zerr.Wrap(err, "failed to write hash to digest")
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// ComputeFileHashes returns the content hash of every file below dir keyed by
// slash-separated relative path.
func (h *Hasher) ComputeFileHashes(dir string) (map[string]string, error) {
	hashes := make(map[string]string)
	for path := range h.walker.WalkFiles(dir, nil) {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrOutputHashComputationFailed.Error()), "path", path)
		}
		sum, err := h.ComputeFileHash(path)
		if err != nil {
			return nil, err
		}
		hashes[filepath.ToSlash(rel)] = fmt.Sprintf("%016x", sum)
	}
	return hashes, nil
}
