package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the envelope format changes.
const diskSchemaVersion uint16 = 1

const artifactExt = ".artifact"

// envelope wraps an artifact on disk with enough metadata to reject entries
// written by an incompatible toolchain.
type envelope struct {
	Schema    uint16
	Toolchain string
	CreatedAt int64
	Payload   msgpack.RawMessage
}

// DiskStore хранит артефакты стадий на диске: <dir>/<stage>/<hex-key>.artifact.
// Значения иммутабельны, чтение без блокировок; вставка берёт шардированный
// per-key замок, глобального замка нет — несвязанные ключи не конкурируют.
type DiskStore struct {
	dir       string
	toolchain string
	locks     [64]sync.Mutex
}

// Open initializes a disk store rooted at dir. A recorded toolchain version
// different from the current one wipes the whole store, since stage output
// formats are not cross-version compatible.
func Open(dir, toolchain string) (*DiskStore, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "flint")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &DiskStore{dir: dir, toolchain: toolchain}

	stampPath := filepath.Join(dir, "toolchain")
	stamp, err := os.ReadFile(stampPath) // #nosec G304 -- path derived from cache dir
	switch {
	case err == nil && string(stamp) == toolchain:
		// кэш совместим
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read cache stamp: %w", err)
	default:
		if err := s.Invalidate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the store's root directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) pathFor(stage string, key Key) string {
	return filepath.Join(s.dir, stage, hex.EncodeToString(key[:])+artifactExt)
}

func (s *DiskStore) lockFor(key Key) *sync.Mutex {
	return &s.locks[int(key[0])%len(s.locks)]
}

// Get reads and decodes an artifact. Any failure (missing file, truncated
// envelope, wrong schema, undecodable payload) is a miss; corruption heals
// by recomputation, never by surfacing an error.
func (s *DiskStore) Get(stage string, key Key, out any) bool {
	if s == nil {
		return false
	}
	data, err := os.ReadFile(s.pathFor(stage, key)) // #nosec G304 -- path is key-derived
	if err != nil {
		return false
	}
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return false
	}
	if env.Schema != diskSchemaVersion || env.Toolchain != s.toolchain {
		return false
	}
	if err := msgpack.Unmarshal(env.Payload, out); err != nil {
		return false
	}
	return true
}

// Put inserts an artifact under key. The insert is idempotent: when the key
// already exists (a race produced the same result twice) the first entry
// wins and the new artifact is discarded.
func (s *DiskStore) Put(stage string, key Key, artifact any) error {
	if s == nil {
		return nil
	}
	p := s.pathFor(stage, key)

	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	if _, err := os.Stat(p); err == nil {
		return nil
	}

	payload, err := msgpack.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	data, err := msgpack.Marshal(&envelope{
		Schema:    diskSchemaVersion,
		Toolchain: s.toolchain,
		CreatedAt: time.Now().Unix(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache envelope: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Атомарная замена
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Invalidate wipes all entries and re-stamps the store with the current
// toolchain version.
func (s *DiskStore) Invalidate() error {
	if s == nil {
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return err
		}
	}
	if err := os.WriteFile(filepath.Join(s.dir, "toolchain"), []byte(s.toolchain), 0o600); err != nil {
		return fmt.Errorf("failed to stamp cache: %w", err)
	}
	return nil
}
