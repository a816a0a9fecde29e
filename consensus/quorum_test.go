package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tribft/message"
	"tribft/types"
)

func TestQuorumSizeFormula(t *testing.T) {
	cases := map[int]int{
		0: 2,
		1: 2,
		3: 3,
		4: 4,
		7: 6,
		21: 15,
	}
	for n, want := range cases {
		assert.Equal(t, want, QuorumSize(n), "n=%d", n)
	}
}

func TestVoteBufferFirstVoteWins(t *testing.T) {
	b := newVoteBuffer("p1")
	v1 := &message.Vote{ProposalID: "p1", VoterID: "n1", Phase: types.PhasePrepare}
	v2 := &message.Vote{ProposalID: "p1", VoterID: "n1", Phase: types.PhasePrepare, Approve: false}
	assert.True(t, b.add(v1))
	assert.False(t, b.add(v2), "a second vote from the same voter in the same phase must be rejected")
	assert.Equal(t, 1, b.count(types.PhasePrepare))
}

func TestVoteBufferTracksPhasesIndependently(t *testing.T) {
	b := newVoteBuffer("p1")
	b.add(&message.Vote{ProposalID: "p1", VoterID: "n1", Phase: types.PhasePrepare})
	b.add(&message.Vote{ProposalID: "p1", VoterID: "n1", Phase: types.PhasePreCommit})
	assert.Equal(t, 1, b.count(types.PhasePrepare))
	assert.Equal(t, 1, b.count(types.PhasePreCommit))
}
