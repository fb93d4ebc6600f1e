// Package digest provides the fixed-size content fingerprints used to key the
// nuclear data cache and to compare registries built from the same input.
package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Digest - фиксированный 256 битный хеш
type Digest [32]byte

// Of hashes a byte slice.
func Of(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// Combine строит составной хеш: H( first || rest[0] || rest[1] ... ).
// Порядок должен быть детерминированным.
func Combine(first Digest, rest ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(first[:])
	for _, d := range rest {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Hex returns the lowercase hexadecimal form.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, enough for display.
func (d Digest) Short() string {
	return d.Hex()[:12]
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Builder accumulates typed fields into a digest. Floats are hashed by their
// IEEE-754 bits so equal inputs always produce equal digests.
type Builder struct {
	h   hash.Hash
	buf [8]byte
}

func NewBuilder() *Builder {
	return &Builder{h: sha256.New()}
}

func (b *Builder) String(s string) *Builder {
	b.Uint64(uint64(len(s)))
	_, _ = b.h.Write([]byte(s))
	return b
}

func (b *Builder) Uint64(v uint64) *Builder {
	binary.LittleEndian.PutUint64(b.buf[:], v)
	_, _ = b.h.Write(b.buf[:])
	return b
}

func (b *Builder) Int64(v int64) *Builder {
	return b.Uint64(uint64(v))
}

func (b *Builder) Float64(v float64) *Builder {
	return b.Uint64(math.Float64bits(v))
}

func (b *Builder) Bool(v bool) *Builder {
	if v {
		return b.Uint64(1)
	}
	return b.Uint64(0)
}

// Sum returns the digest of everything written so far.
func (b *Builder) Sum() Digest {
	var out Digest
	copy(out[:], b.h.Sum(nil))
	return out
}
