// Package crypto provides the opaque identifier and hashing primitives
// TriBFT needs: content hashes for proposals/blocks/Merkle nodes, and a
// placeholder signature type. The specification treats signature schemes
// as opaque identifier strings (see §1 Non-goals), so no real signing
// algorithm lives here — only the hashing the data model actually needs.
package crypto

import (
	"bytes"
	"encoding/hex"
	"hash"
	"io"

	"golang.org/x/crypto/sha3"
)

// Hash is a fixed-length hash digest.
type Hash []byte

func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

func (h Hash) Hex() string {
	return hex.EncodeToString(h)
}

func (h Hash) String() string {
	return h.Hex()
}

func BytesToHash(b []byte) Hash {
	h := make([]byte, len(b))
	copy(h, b)
	return h
}

// KeccakState wraps sha3.state; Read is faster than Sum since it avoids
// copying internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 hashes the concatenation of every input and returns a
// 32-byte digest.
func Keccak256(data ...[]byte) Hash {
	out := make([]byte, 32)
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	_, _ = d.Read(out)
	return out
}

var _ io.Writer = NewKeccakState()
