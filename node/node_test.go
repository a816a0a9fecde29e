package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribft/blockchain"
	"tribft/byzantine"
	"tribft/message"
	"tribft/reputation"
	"tribft/types"
)

type recordingTransport struct {
	broadcasts []interface{}
	sentTo     map[types.NodeID][]interface{}
	requested  []types.BlockHeight
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{sentTo: make(map[types.NodeID][]interface{})}
}

func (r *recordingTransport) Broadcast(payload interface{}) {
	r.broadcasts = append(r.broadcasts, payload)
}

func (r *recordingTransport) SendTo(id types.NodeID, payload interface{}) {
	r.sentTo[id] = append(r.sentTo[id], payload)
}

func (r *recordingTransport) RequestFullBlock(requester types.NodeID, requestID string, height types.BlockHeight) {
	r.requested = append(r.requested, height)
}

func newTestNode(t *testing.T, id types.NodeID, isByz bool, transport *recordingTransport) *Node {
	t.Helper()
	collab := Collaborators{
		Transport:     transport,
		CommitteeSize: func() int { return 3 },
	}
	return New(id, types.ShardID(0), isByz, time.Minute, 10, blockchain.NewChain(), collab, nil, "", 0)
}

func TestProposeIfLeaderRequiresLeadershipAndBatch(t *testing.T) {
	transport := newRecordingTransport()
	n := newTestNode(t, "n0", false, transport)

	assert.False(t, n.ProposeIfLeader(false, 1), "a non-leader must never propose")
	assert.False(t, n.ProposeIfLeader(true, 1), "proposing requires at least batchSize pending transactions")

	n.Pool().Add(&message.Transaction{ID: "t1", Sender: "s"})
	assert.True(t, n.ProposeIfLeader(true, 1))
	assert.Len(t, transport.broadcasts, 1, "a successful proposal must broadcast exactly one message")
}

func TestProposeIfLeaderRefusesMidRound(t *testing.T) {
	transport := newRecordingTransport()
	n := newTestNode(t, "n0", false, transport)
	n.Pool().Add(&message.Transaction{ID: "t1", Sender: "s"})
	require.True(t, n.ProposeIfLeader(true, 1))

	n.Pool().Add(&message.Transaction{ID: "t2", Sender: "s"})
	assert.False(t, n.ProposeIfLeader(true, 1), "a node already mid-round must not start a second proposal")
}

func TestByzantineNodeSilencesBroadcasts(t *testing.T) {
	transport := newRecordingTransport()
	n := newTestNode(t, "n0", true, transport)
	n.Pool().Add(&message.Transaction{ID: "t1", Sender: "s"})
	require.True(t, n.ProposeIfLeader(true, 1))
	assert.Empty(t, transport.broadcasts, "a byzantine node's silence-attack stub must suppress its proposal broadcast")
}

func TestReceiveProposalRewardsValidLeader(t *testing.T) {
	transport := newRecordingTransport()
	reps := reputation.NewManager(reputation.DefaultConfig(), nil, nil)
	collab := Collaborators{Transport: transport, Reputation: reps, CommitteeSize: func() int { return 3 }}
	n := New("n1", types.ShardID(0), false, time.Minute, 10, blockchain.NewChain(), collab, nil, "", 0)

	p := message.MakeProposal("leader", types.ShardID(0), 1, "", []*message.Transaction{{ID: "t1", Sender: "s"}}, time.Now())
	before := reps.Score("leader")
	n.ReceiveProposal(p)
	assert.Greater(t, reps.Score("leader"), before)
}

func TestReceiveProposalPenalizesInvalidLeader(t *testing.T) {
	transport := newRecordingTransport()
	reps := reputation.NewManager(reputation.DefaultConfig(), nil, nil)
	collab := Collaborators{Transport: transport, Reputation: reps, CommitteeSize: func() int { return 3 }}
	n := New("n1", types.ShardID(0), false, time.Minute, 10, blockchain.NewChain(), collab, nil, "", 0)

	p := message.MakeProposal("leader", types.ShardID(0), 99, "", []*message.Transaction{{ID: "t1", Sender: "s"}}, time.Now())
	before := reps.Score("leader")
	n.ReceiveProposal(p)
	assert.Less(t, reps.Score("leader"), before, "a proposal rejected at the wrong height must penalize its leader")
}

func TestTickRequeuesTimedOutTransactions(t *testing.T) {
	transport := newRecordingTransport()
	collab := Collaborators{Transport: transport, CommitteeSize: func() int { return 3 }}
	n := New("n0", types.ShardID(0), false, time.Millisecond, 10, blockchain.NewChain(), collab, nil, "", 0)

	n.Pool().Add(&message.Transaction{ID: "t1", Sender: "s"})
	require.True(t, n.ProposeIfLeader(true, 1))
	time.Sleep(5 * time.Millisecond)

	n.Tick()
	assert.Equal(t, 1, n.Pool().Size(), "a timed-out round's transactions must be requeued into the pool")
}

func TestProposeIfLeaderRateLimited(t *testing.T) {
	transport := newRecordingTransport()
	collab := Collaborators{Transport: transport, CommitteeSize: func() int { return 3 }}
	n := New("n0", types.ShardID(0), false, time.Minute, 10, blockchain.NewChain(), collab, nil, "", time.Hour)

	n.Pool().Add(&message.Transaction{ID: "t1", Sender: "s"})
	require.True(t, n.ProposeIfLeader(true, 1), "the first proposal within block_interval must still succeed")

	n.engine.HandleTimeout(time.Now().Add(2 * time.Hour)) // force back to idle so only the limiter gates the next attempt
	n.Pool().Add(&message.Transaction{ID: "t2", Sender: "s"})
	assert.False(t, n.ProposeIfLeader(true, 1), "a second proposal inside the same block_interval must be throttled")
}

func TestReceiveReportByzantineFromCandidateReporterDoesNotConfirmDirectly(t *testing.T) {
	transport := newRecordingTransport()
	reps := reputation.NewManager(reputation.DefaultConfig(), nil, nil)
	reps.Register("low-rep")
	for i := 0; i < 20; i++ {
		reps.PenalizeMalicious("low-rep")
	}
	require.Equal(t, types.TierCandidate, reps.Tier("low-rep"))

	tracker := byzantine.NewTracker(1)
	collab := Collaborators{Transport: transport, Reputation: reps, Byzantine: tracker, CommitteeSize: func() int { return 3 }}
	n := New("n0", types.ShardID(0), false, time.Minute, 10, blockchain.NewChain(), collab, nil, "", 0)

	ok := n.ReceiveReportByzantine(message.ReportByzantine{Suspect: "suspect", Reporter: "low-rep"})
	assert.False(t, ok, "a candidate-tier reporter must never confirm a suspect on its own say")
	assert.Equal(t, 0, tracker.ReporterCount("suspect"), "the report must be routed to cross-verification, not the corroboration tracker")
}

func TestReceiveReportByzantineWithoutTrackerReturnsFalse(t *testing.T) {
	transport := newRecordingTransport()
	n := newTestNode(t, "n0", false, transport)
	ok := n.ReceiveReportByzantine(message.ReportByzantine{Suspect: "n1", Reporter: "n0"})
	assert.False(t, ok)
}

func TestReceiveReportByzantinePenalizesOnConfirmation(t *testing.T) {
	transport := newRecordingTransport()
	reps := reputation.NewManager(reputation.DefaultConfig(), nil, nil)
	tracker := byzantine.NewTracker(1)
	collab := Collaborators{Transport: transport, Reputation: reps, Byzantine: tracker, CommitteeSize: func() int { return 3 }}
	n := New("n0", types.ShardID(0), false, time.Minute, 10, blockchain.NewChain(), collab, nil, "", 0)

	before := reps.Score("suspect")
	ok := n.ReceiveReportByzantine(message.ReportByzantine{Suspect: "suspect", Reporter: "n0"})
	require.True(t, ok)
	assert.Less(t, reps.Score("suspect"), before)
}
