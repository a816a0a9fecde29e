// Package message defines the logical payloads exchanged between
// TriBFT nodes: transactions, consensus proposals/votes/phase-advance
// notices, and sync/byzantine-report messages. Wire encoding is out of
// scope (§1 Non-goals) — these are plain Go structs passed through the
// transport capability the harness injects (§6).
package message

import (
	"fmt"
	"time"

	"tribft/crypto"
	"tribft/types"
)

// Transaction is an opaque payload. Invariant: ID and Sender are
// non-empty (§3).
type Transaction struct {
	ID        string
	Sender    types.NodeID
	Receiver  types.NodeID
	Value     float64
	Timestamp time.Time
	Data      string
}

func (tx *Transaction) Valid() bool {
	return tx != nil && tx.ID != "" && tx.Sender != ""
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("Transaction{id=%s from=%v to=%v value=%v}", tx.ID, tx.Sender, tx.Receiver, tx.Value)
}

// Proposal is a leader's block proposal, §3 "Proposal".
type Proposal struct {
	ProposalID   string
	Height       types.BlockHeight
	View         types.View
	LeaderID     types.NodeID
	ShardID      types.ShardID
	ProposalTime time.Time
	Transactions []*Transaction
	BlockHash    string
	PreviousHash string
}

// MakeProposal derives BlockHash deterministically from
// (height, previous hash, proposal time), per §3's Proposal invariant.
func MakeProposal(leader types.NodeID, shard types.ShardID, height types.BlockHeight, previousHash string, txs []*Transaction, proposalTime time.Time) *Proposal {
	p := &Proposal{
		ProposalID:   crypto.MakeID(struct {
			Leader types.NodeID
			Height types.BlockHeight
			Time   time.Time
		}{leader, height, proposalTime}),
		Height:       height,
		LeaderID:     leader,
		ShardID:      shard,
		ProposalTime: proposalTime,
		Transactions: txs,
		PreviousHash: previousHash,
	}
	p.BlockHash = crypto.MakeID(struct {
		Height       types.BlockHeight
		PreviousHash string
		ProposalTime time.Time
	}{p.Height, p.PreviousHash, p.ProposalTime})
	return p
}

// Vote is a single node's vote for a proposal at a given phase, §3 "Vote".
type Vote struct {
	ProposalID string
	VoterID    types.NodeID
	Phase      types.Phase
	Approve    bool
	VoteTime   time.Time
	Signature  crypto.Signature
}

// PhaseAdvance is the leader-driven phase-sync notification, §4.D step 3.
type PhaseAdvance struct {
	ProposalID string
	FromPhase  types.Phase
	ToPhase    types.Phase
}

// TimeoutNotice signals a node's local detection of a round timeout.
type TimeoutNotice struct {
	ProposalID string
	ShardID    types.ShardID
	View       types.View
	At         time.Time
}

// ReportByzantine is a peer-observed report of malicious behavior,
// grounded on the teacher's byzantine.ReportByzantine shape.
type ReportByzantine struct {
	ShardID   types.ShardID
	Epoch     types.Epoch
	Reporter  types.NodeID
	Suspect   types.NodeID
	Reason    string
	Timestamp time.Time
}

func (r ReportByzantine) String() string {
	return fmt.Sprintf("ReportByzantine{shard=%v epoch=%v suspect=%v reason=%q}", r.ShardID, r.Epoch, r.Suspect, r.Reason)
}
