// Package blockchain is the committed-block store and Merkle proof
// machinery backing the Lightweight Sync component (§4.E). Unlike the
// teacher's LeveledForest, this store is strictly linear: §4.D's state
// machine has exactly one active proposal at a time, so there is no
// forking to track and no trie-based state root to carry (§1 Non-goals
// excludes persistent cross-shard state).
package blockchain

import (
	"time"

	"tribft/crypto"
	"tribft/message"
	"tribft/types"
)

// QC is the minimal quorum certificate shape a committed block carries
// (its Commit-phase QC, §3 "Block"). The full QC type with vote lists
// lives in package consensus; blockchain only needs to reference it by
// identity for header/proof purposes.
type QC struct {
	ProposalID string
	Phase      types.Phase
	Height     types.BlockHeight
	View       types.View
	TotalVotes int
	Timestamp  time.Time
}

// Block is the committed block, §3 "Block".
type Block struct {
	Height       types.BlockHeight
	BlockHash    string
	PreviousHash string
	ShardID      types.ShardID
	Transactions []*message.Transaction
	CommitQC     *QC
	Timestamp    time.Time
	Proposer     types.NodeID
}

// Header is the block minus its transaction list, plus the Merkle
// root over transaction ids (§3 "Block header").
type Header struct {
	Height       types.BlockHeight
	BlockHash    string
	PreviousHash string
	MerkleRoot   string
	ShardID      types.ShardID
	Timestamp    time.Time
	Proposer     types.NodeID
	TxCount      int
}

// HeaderOf extracts a Header from a full Block.
func HeaderOf(b *Block) Header {
	return Header{
		Height:       b.Height,
		BlockHash:    b.BlockHash,
		PreviousHash: b.PreviousHash,
		MerkleRoot:   MerkleRoot(b.Transactions),
		ShardID:      b.ShardID,
		Timestamp:    b.Timestamp,
		Proposer:     b.Proposer,
		TxCount:      len(b.Transactions),
	}
}

// FromProposal builds the committed block from its proposal and the
// Commit-phase QC that terminated it — the single atomic point at
// which a block becomes canonical (§4.D "Commit").
func FromProposal(p *message.Proposal, qc *QC) *Block {
	return &Block{
		Height:       p.Height,
		BlockHash:    p.BlockHash,
		PreviousHash: p.PreviousHash,
		ShardID:      p.ShardID,
		Transactions: p.Transactions,
		CommitQC:     qc,
		Timestamp:    p.ProposalTime,
		Proposer:     p.LeaderID,
	}
}

func leafHash(tx *message.Transaction) crypto.Hash {
	return crypto.Keccak256([]byte(tx.ID))
}
