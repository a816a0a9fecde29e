package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribft/blockchain"
	"tribft/message"
	"tribft/types"
)

// newCluster wires three engines together with a FIFO delivery queue:
// every outbound proposal/vote/phase-advance callback enqueues delivery
// to all committee members (including the sender, matching main.go's
// memTransport.Broadcast) rather than dispatching inline, so every node
// finishes adopting the proposal before any vote is processed. drain
// must be called to pump the queue after each round-starting call.
func newCluster(t *testing.T) (map[types.NodeID]*Engine, func()) {
	t.Helper()
	ids := []types.NodeID{"n0", "n1", "n2"}
	engines := make(map[types.NodeID]*Engine)
	committeeSize := func() int { return len(ids) }

	var queue []func()
	enqueue := func(f func()) { queue = append(queue, f) }
	drain := func() {
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			f()
		}
	}

	for _, id := range ids {
		engines[id] = New(id, types.ShardID(0), committeeSize, time.Second, blockchain.NewChain(), Callbacks{
			OnProposal: func(p *message.Proposal) {
				for _, other := range ids {
					other := other
					enqueue(func() { engines[other].HandleProposal(p) })
				}
			},
			OnVote: func(v *message.Vote) {
				for _, other := range ids {
					other := other
					enqueue(func() { engines[other].HandleVote(v) })
				}
			},
			OnPhaseAdvance: func(adv *message.PhaseAdvance) {
				for _, other := range ids {
					other := other
					enqueue(func() { engines[other].HandlePhaseAdvance(adv) })
				}
			},
		}, nil)
	}
	return engines, drain
}

func TestThreeNodeClusterCommitsOnQuorum(t *testing.T) {
	engines, drain := newCluster(t)
	var committed []*blockchain.Block
	engines["n0"].cb.OnCommit = func(b *blockchain.Block) { committed = append(committed, b) }

	require.True(t, engines["n0"].ProposeBlock([]*message.Transaction{{ID: "t1", Sender: "s"}}))
	drain()

	for id, e := range engines {
		assert.Equal(t, StateCommitted, e.State(), "node %s must reach COMMITTED once quorum is met in every phase", id)
		assert.Equal(t, types.BlockHeight(2), e.CurrentHeight())
	}
	require.Len(t, committed, 1)
	assert.Equal(t, types.BlockHeight(1), committed[0].Height)
}

func TestProposeBlockRefusedMidRound(t *testing.T) {
	e := New("n0", types.ShardID(0), func() int { return 3 }, time.Second, blockchain.NewChain(), Callbacks{}, nil)
	require.True(t, e.ProposeBlock([]*message.Transaction{{ID: "t1", Sender: "s"}}))
	assert.False(t, e.ProposeBlock([]*message.Transaction{{ID: "t2", Sender: "s"}}), "a second proposal must be refused while a round is in progress")
}

func TestProposeBlockRefusesEmptyTransactions(t *testing.T) {
	e := New("n0", types.ShardID(0), func() int { return 3 }, time.Second, blockchain.NewChain(), Callbacks{}, nil)
	assert.False(t, e.ProposeBlock(nil), "an empty transaction list must never produce a proposal")
	assert.False(t, e.ProposeBlock([]*message.Transaction{}))
	assert.Equal(t, StateIdle, e.State())
}

func TestProposeBlockStampsCurrentView(t *testing.T) {
	e := New("n0", types.ShardID(0), func() int { return 3 }, time.Millisecond, blockchain.NewChain(), Callbacks{}, nil)
	e.ProposeBlock([]*message.Transaction{{ID: "t1", Sender: "s"}})
	time.Sleep(5 * time.Millisecond)
	e.HandleTimeout(time.Now()) // bumps view to 1 and resets to idle

	require.True(t, e.ProposeBlock([]*message.Transaction{{ID: "t2", Sender: "s"}}))
	assert.Equal(t, types.View(1), e.active.View, "a new round must stamp the proposal with the engine's current view")
}

func TestHandleProposalRejectsWrongHeight(t *testing.T) {
	e := New("n1", types.ShardID(0), func() int { return 3 }, time.Second, blockchain.NewChain(), Callbacks{}, nil)
	p := message.MakeProposal("n0", types.ShardID(0), 99, "", nil, time.Now())
	assert.False(t, e.HandleProposal(p))
}

func TestHandleProposalRejectsEmptyTransactions(t *testing.T) {
	e := New("n1", types.ShardID(0), func() int { return 3 }, time.Second, blockchain.NewChain(), Callbacks{}, nil)
	p := message.MakeProposal("n0", types.ShardID(0), 1, "", nil, time.Now())
	assert.False(t, e.HandleProposal(p), "a proposal with no transactions must never be adopted")
}

func TestHandleProposalRejectsStaleView(t *testing.T) {
	e := New("n1", types.ShardID(0), func() int { return 3 }, time.Second, blockchain.NewChain(), Callbacks{}, nil)
	e.view = 2
	p := message.MakeProposal("n0", types.ShardID(0), 1, "", []*message.Transaction{{ID: "t1", Sender: "s"}}, time.Now())
	p.View = 1
	assert.False(t, e.HandleProposal(p), "a proposal carrying a view behind the replica's current view must be rejected")
}

func TestHandleVoteIgnoredWhenNoActiveRound(t *testing.T) {
	e := New("n1", types.ShardID(0), func() int { return 3 }, time.Second, blockchain.NewChain(), Callbacks{}, nil)
	v := &message.Vote{ProposalID: "nonexistent", VoterID: "n0", Phase: types.PhasePrepare}
	assert.False(t, e.HandleVote(v))
}

func TestHandleTimeoutRequeuesAndResets(t *testing.T) {
	e := New("n0", types.ShardID(0), func() int { return 3 }, time.Millisecond, blockchain.NewChain(), Callbacks{}, nil)
	e.ProposeBlock([]*message.Transaction{{ID: "t1", Sender: "s"}})
	time.Sleep(5 * time.Millisecond)

	txs, timedOut := e.HandleTimeout(time.Now())
	require.True(t, timedOut)
	require.Len(t, txs, 1)
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, types.View(1), e.CurrentView())
}

func TestHandleTimeoutNoOpBeforeDeadline(t *testing.T) {
	e := New("n0", types.ShardID(0), func() int { return 3 }, time.Hour, blockchain.NewChain(), Callbacks{}, nil)
	e.ProposeBlock([]*message.Transaction{{ID: "t1", Sender: "s"}})
	_, timedOut := e.HandleTimeout(time.Now())
	assert.False(t, timedOut)
}

func TestCancelIfLeaderOnlyCancelsMatchingLeader(t *testing.T) {
	e := New("n0", types.ShardID(0), func() int { return 3 }, time.Second, blockchain.NewChain(), Callbacks{}, nil)
	e.ProposeBlock([]*message.Transaction{{ID: "t1", Sender: "s"}})

	assert.Nil(t, e.CancelIfLeader("someone-else"))
	assert.Equal(t, StateProposed, e.State())

	txs := e.CancelIfLeader("n0")
	assert.Len(t, txs, 1)
	assert.Equal(t, StateIdle, e.State())
}
