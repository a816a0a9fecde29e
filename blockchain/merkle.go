package blockchain

import (
	"encoding/hex"

	"tribft/crypto"
	"tribft/message"
)

// EmptyRoot is the Merkle root of a block with no transactions,
// grounded on original_source's LightweightSync "EMPTY_ROOT" sentinel.
const EmptyRoot = "EMPTY_ROOT"

// MerkleProof is a transaction's inclusion proof: the sibling hashes
// and left/right directions from leaf to root (§4.E).
type MerkleProof struct {
	TxHash     string
	Siblings   []string
	Directions []bool // false = sibling is on the left, true = on the right
}

// MerkleRoot computes the root of the binary Merkle tree over a
// transaction list's ids, hashed with the same sha3 primitive the
// teacher's crypto package already carries (§4.E, SPEC_FULL's
// "DROPPED-SCOPE NOTE").
func MerkleRoot(txs []*message.Transaction) string {
	if len(txs) == 0 {
		return EmptyRoot
	}
	level := make([]crypto.Hash, len(txs))
	for i, tx := range txs {
		level[i] = leafHash(tx)
	}
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0].Hex()
}

func nextLevel(level []crypto.Hash) []crypto.Hash {
	var next []crypto.Hash
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, crypto.Keccak256(level[i], level[i+1]))
		} else {
			// odd node is paired with itself and hashed up.
			next = append(next, crypto.Keccak256(level[i], level[i]))
		}
	}
	return next
}

// BuildProof constructs a MerkleProof for the transaction at index idx
// within txs. Used by full-block holders to answer a verification
// request; non-committee nodes never call this, only VerifyProof.
func BuildProof(txs []*message.Transaction, idx int) (MerkleProof, bool) {
	if idx < 0 || idx >= len(txs) {
		return MerkleProof{}, false
	}
	level := make([]crypto.Hash, len(txs))
	for i, tx := range txs {
		level[i] = leafHash(tx)
	}
	proof := MerkleProof{TxHash: level[idx].Hex()}
	pos := idx
	for len(level) > 1 {
		var siblingIdx int
		var dirRight bool
		if pos%2 == 0 {
			siblingIdx = pos + 1
			if siblingIdx >= len(level) {
				siblingIdx = pos
			}
			dirRight = true
		} else {
			siblingIdx = pos - 1
			dirRight = false
		}
		proof.Siblings = append(proof.Siblings, level[siblingIdx].Hex())
		proof.Directions = append(proof.Directions, dirRight)
		level = nextLevel(level)
		pos /= 2
	}
	return proof, true
}

// VerifyProof recomputes the root from leafHex, the proof's siblings
// and directions, and compares it against root (§4.E verify_transaction).
func VerifyProof(leafHex string, proof MerkleProof, root string) bool {
	current, err := hexToHash(leafHex)
	if err != nil {
		return false
	}
	for i, sibHex := range proof.Siblings {
		sib, err := hexToHash(sibHex)
		if err != nil {
			return false
		}
		if i < len(proof.Directions) && proof.Directions[i] {
			current = crypto.Keccak256(current, sib)
		} else {
			current = crypto.Keccak256(sib, current)
		}
	}
	return current.Hex() == root
}

func hexToHash(s string) (crypto.Hash, error) {
	b, err := hex.DecodeString(s)
	return crypto.Hash(b), err
}
