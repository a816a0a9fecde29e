// Package consensus implements the HotStuff Three-Phase Consensus
// Engine (§4.D): propose, collect Prepare/PreCommit/Commit votes,
// assemble quorum certificates, and commit blocks. The vote-buffer
// shape (proposal id -> phase -> votes) and the overall round
// structure are grounded on the teacher's pbft.Replica and
// quorum.Quorum[T], generalized from the teacher's cross-shard PBFT
// variant down to the single-active-proposal state machine §4.D
// describes, and corroborated by original_source's HotStuffEngine.h
// (voteStore_, highestQC_, phaseQCs_ carry the identical shape).
package consensus

import (
	"time"

	"tribft/message"
	"tribft/types"
)

// QC is a Quorum Certificate, §3 "Quorum Certificate (QC)".
type QC struct {
	ProposalID string
	Phase      types.Phase
	Height     types.BlockHeight
	View       types.View
	Votes      []*message.Vote
	Timestamp  time.Time
}

func (qc *QC) TotalVotes() int { return len(qc.Votes) }

// QuorumSize implements §4.D: q = ceil(2N/3) + 1, floor 2.
func QuorumSize(n int) int {
	q := (2*n+2)/3 + 1 // ceil(2N/3) computed as (2N+2)/3 for integer N>=0
	if q < 2 {
		q = 2
	}
	return q
}

// voteBuffer accumulates votes for the single in-flight proposal,
// keyed by phase, with double-vote prevention per (voter, phase).
type voteBuffer struct {
	proposalID string
	byPhase    map[types.Phase][]*message.Vote
	seenVoter  map[types.Phase]map[types.NodeID]bool
}

func newVoteBuffer(proposalID string) *voteBuffer {
	return &voteBuffer{
		proposalID: proposalID,
		byPhase:    make(map[types.Phase][]*message.Vote),
		seenVoter:  make(map[types.Phase]map[types.NodeID]bool),
	}
}

// add records vote if this is the first vote from its voter for this
// phase (§4.D "Double-vote prevention: keep only the first vote
// received"). Returns false if the vote was a duplicate.
func (b *voteBuffer) add(v *message.Vote) bool {
	seen, ok := b.seenVoter[v.Phase]
	if !ok {
		seen = make(map[types.NodeID]bool)
		b.seenVoter[v.Phase] = seen
	}
	if seen[v.VoterID] {
		return false
	}
	seen[v.VoterID] = true
	b.byPhase[v.Phase] = append(b.byPhase[v.Phase], v)
	return true
}

func (b *voteBuffer) count(phase types.Phase) int {
	return len(b.byPhase[phase])
}

func (b *voteBuffer) votes(phase types.Phase) []*message.Vote {
	return b.byPhase[phase]
}
