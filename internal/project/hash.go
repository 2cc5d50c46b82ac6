package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest - фиксированный 256 битный хеш (совместим с source.File.Hash)
type Digest [32]byte

// Combine строит модульный хеш: H( content || dep1 || dep2 ... ).
// Порядок deps должен быть детерминированным (у нас Edges уже отсортированы).
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether the digest is all zeroes (never a real hash).
func (d Digest) IsZero() bool {
	var z Digest
	return d == z
}

// Hex returns the lowercase hex encoding of the digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// ShortHex returns the first 12 hex characters, enough for display.
func (d Digest) ShortHex() string {
	return d.Hex()[:12]
}
