package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribft/types"
)

func TestTransactionValid(t *testing.T) {
	tx := &Transaction{ID: "t1", Sender: "n1"}
	assert.True(t, tx.Valid())

	assert.False(t, (&Transaction{Sender: "n1"}).Valid())
	assert.False(t, (&Transaction{ID: "t1"}).Valid())
	assert.False(t, (*Transaction)(nil).Valid())
}

func TestMakeProposalDeterministicHash(t *testing.T) {
	now := time.Unix(1000, 0)
	txs := []*Transaction{{ID: "t1", Sender: "n1"}}

	p1 := MakeProposal("leader", types.ShardID(0), 1, "prev", txs, now)
	p2 := MakeProposal("leader", types.ShardID(0), 1, "prev", txs, now)

	require.NotEmpty(t, p1.ProposalID)
	require.NotEmpty(t, p1.BlockHash)
	assert.Equal(t, p1.ProposalID, p2.ProposalID)
	assert.Equal(t, p1.BlockHash, p2.BlockHash)

	p3 := MakeProposal("leader", types.ShardID(0), 2, "prev", txs, now)
	assert.NotEqual(t, p1.BlockHash, p3.BlockHash)
}

func TestReportByzantineString(t *testing.T) {
	r := ReportByzantine{ShardID: 1, Suspect: "n9", Reason: "double vote"}
	assert.Contains(t, r.String(), "n9")
	assert.Contains(t, r.String(), "double vote")
}
