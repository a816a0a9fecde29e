package blockchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribft/message"
	"tribft/types"
)

func makeTxs(n int) []*message.Transaction {
	txs := make([]*message.Transaction, n)
	for i := range txs {
		txs[i] = &message.Transaction{ID: string(rune('a' + i)), Sender: "s"}
	}
	return txs
}

func TestMerkleRootEmpty(t *testing.T) {
	assert.Equal(t, EmptyRoot, MerkleRoot(nil))
}

func TestMerkleRootDeterministic(t *testing.T) {
	txs := makeTxs(5)
	r1 := MerkleRoot(txs)
	r2 := MerkleRoot(txs)
	assert.Equal(t, r1, r2)
}

func TestBuildAndVerifyProof(t *testing.T) {
	txs := makeTxs(7)
	root := MerkleRoot(txs)
	for i := range txs {
		proof, ok := BuildProof(txs, i)
		require.True(t, ok)
		assert.True(t, VerifyProof(proof.TxHash, proof, root), "proof for tx %d must verify against the root", i)
	}
}

func TestVerifyProofRejectsTamperedRoot(t *testing.T) {
	txs := makeTxs(4)
	proof, ok := BuildProof(txs, 1)
	require.True(t, ok)
	assert.False(t, VerifyProof(proof.TxHash, proof, "not-the-real-root"))
}

func TestChainRejectsGap(t *testing.T) {
	c := NewChain()
	b1 := &Block{Height: 1, BlockHash: "h1", Timestamp: time.Now()}
	require.True(t, c.Append(b1))

	b3 := &Block{Height: 3, BlockHash: "h3", PreviousHash: "h1"}
	assert.False(t, c.Append(b3), "a block must not extend the chain past a gap")

	b2 := &Block{Height: 2, BlockHash: "h2", PreviousHash: "h1"}
	assert.True(t, c.Append(b2))
	assert.Equal(t, types.BlockHeight(2), c.LatestHeight())
}

func TestChainRejectsWrongPreviousHash(t *testing.T) {
	c := NewChain()
	c.Append(&Block{Height: 1, BlockHash: "h1"})
	bad := &Block{Height: 2, BlockHash: "h2", PreviousHash: "wrong"}
	assert.False(t, c.Append(bad))
}

func TestHeaderOfRoundTrip(t *testing.T) {
	p := message.MakeProposal("leader", types.ShardID(0), 1, "", makeTxs(3), time.Now())
	b := FromProposal(p, &QC{})
	hd := HeaderOf(b)
	assert.Equal(t, MerkleRoot(b.Transactions), hd.MerkleRoot)
	assert.Equal(t, len(b.Transactions), hd.TxCount)
}
