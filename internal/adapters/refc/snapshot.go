package refc

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// snapshotFormat is bumped whenever Snapshot changes incompatibly.
const snapshotFormat = 1

// FileState is what the compiler remembers about one source.
type FileState struct {
	Hash     string   `msgpack:"hash"`
	BodyHash string   `msgpack:"body"`
	Imports  []string `msgpack:"imports"`
	Decls    []Decl   `msgpack:"decls"`
	Class    string   `msgpack:"class"`
}

// Snapshot is the persisted incremental state of one module.
type Snapshot struct {
	Format        int                  `msgpack:"format"`
	Toolchain     string               `msgpack:"toolchain"`
	Module        string               `msgpack:"module"`
	Classpath     string               `msgpack:"classpath"`
	ABIHash       string               `msgpack:"abi"`
	DependencyABI map[string]string    `msgpack:"deps"`
	Files         map[string]FileState `msgpack:"files"`
}

// ReadSnapshot decodes the snapshot at path.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the module's own incremental directory
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read snapshot"), "path", path)
	}
	return decodeSnapshot(path, data)
}

func decodeSnapshot(path string, data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to decode snapshot"), "path", path)
	}
	if s.Format != snapshotFormat {
		return nil, zerr.With(zerr.New("unsupported snapshot format"), "path", path)
	}
	return &s, nil
}

// WriteSnapshot encodes the snapshot to path, replacing any previous one atomically.
func WriteSnapshot(path string, s *Snapshot) error {
	_, err := writeSnapshot(path, s)
	return err
}

func writeSnapshot(path string, s *Snapshot) ([]byte, error) {
	s.Format = snapshotFormat
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode snapshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create incremental directory"), "path", path)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, domain.PrivateFilePerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to write snapshot"), "path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, zerr.With(zerr.Wrap(err, "failed to write snapshot"), "path", path)
	}
	return data, nil
}

type cachedSnapshot struct {
	snapshot *Snapshot
	digest   uint64
}

// snapshotCache keeps decoded snapshots in memory. The file on disk stays
// authoritative: an entry is reused only while its content digest matches.
type snapshotCache struct {
	mu      sync.Mutex
	entries map[string]cachedSnapshot
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{entries: make(map[string]cachedSnapshot)}
}

// load returns the snapshot at path, or nil when it is missing or unreadable.
func (c *snapshotCache) load(path string, useCache bool) *Snapshot {
	data, err := os.ReadFile(path) //nolint:gosec // path is a module incremental directory
	if err != nil {
		c.forget(path)
		return nil
	}
	digest := xxhash.Sum64(data)

	if useCache {
		c.mu.Lock()
		entry, ok := c.entries[path]
		c.mu.Unlock()
		if ok && entry.digest == digest {
			return entry.snapshot
		}
	}

	s, err := decodeSnapshot(path, data)
	if err != nil {
		c.forget(path)
		return nil
	}
	if useCache {
		c.mu.Lock()
		c.entries[path] = cachedSnapshot{snapshot: s, digest: digest}
		c.mu.Unlock()
	}
	return s
}

func (c *snapshotCache) store(path string, s *Snapshot, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cachedSnapshot{snapshot: s, digest: xxhash.Sum64(data)}
}

func (c *snapshotCache) forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

func (c *snapshotCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
