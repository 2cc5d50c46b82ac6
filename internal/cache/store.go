// Package cache implements the content-addressed artifact store shared by
// every compilation stage. Keys are derived from the module's aggregate source
// hash, the stage name, and the toolchain version, so "does this exist" and
// "is this stale" are the same lookup.
package cache

import (
	"crypto/sha256"

	"flint/internal/project"
)

// Key addresses one cached artifact.
type Key [32]byte

// EntryKey derives the cache key for a (module, stage) pair.
// Входной хеш — агрегированный хеш исходников модуля; версия тулчейна
// замешивается, чтобы артефакты разных версий никогда не пересекались.
// Путь модуля тоже входит в ключ: артефакты несут идентичность модуля,
// и одинаковые по содержимому модули не должны делить записи.
func EntryKey(src project.Digest, module, stage, toolchain string) Key {
	h := sha256.New()
	_, _ = h.Write(src[:])
	_, _ = h.Write([]byte(module))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(stage))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(toolchain))
	var out Key
	copy(out[:], h.Sum(nil))
	return out
}

// Store is the content-addressed cache contract. Entries are immutable:
// Put under an existing key keeps the first value and discards the new one.
// Lookup never fails hard: a corrupt or unreadable entry is a miss.
type Store interface {
	Get(stage string, key Key, out any) bool
	Put(stage string, key Key, artifact any) error
	Invalidate() error
}

// Nop is a Store that never hits and never writes (--no-cache).
type Nop struct{}

func (Nop) Get(string, Key, any) bool  { return false }
func (Nop) Put(string, Key, any) error { return nil }
func (Nop) Invalidate() error          { return nil }
