package consensus

import (
	"time"

	"tribft/blockchain"
	"tribft/message"
	"tribft/metrics"
	"tribft/types"
)

// RoundState is the engine's coarse state, mirroring
// original_source's HotStuffEngine state names.
type RoundState byte

const (
	StateIdle RoundState = iota
	StateProposed
	StateCommitted
	StateTimedOut
)

func (s RoundState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateProposed:
		return "PROPOSED"
	case StateCommitted:
		return "COMMITTED"
	case StateTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN_STATE"
	}
}

// Callbacks are the capabilities the harness injects into an Engine,
// per §9's design note preferring capability injection over
// component back-pointers.
type Callbacks struct {
	OnProposal     func(*message.Proposal)
	OnVote         func(*message.Vote)
	OnPhaseAdvance func(*message.PhaseAdvance)
	OnCommit       func(*blockchain.Block)
	OnLog          func(string)
}

// Engine runs the HotStuff three-phase state machine (§4.D) for a
// single shard's committee. It holds exactly one active proposal at a
// time; there is no forking. Grounded on the teacher's pbft.Replica
// round structure, reshaped to the single-proposal state machine and
// corroborated by original_source's HotStuffEngine.h.
type Engine struct {
	nodeID  types.NodeID
	shardID types.ShardID

	committeeSize func() int // current primary committee size (quorum N), injected (committee changes across epochs)

	phase  types.Phase
	state  RoundState
	view   types.View
	height types.BlockHeight

	previousHash string
	chain        *blockchain.Chain

	active  *message.Proposal
	buffer  *voteBuffer
	roundAt time.Time
	timeout time.Duration

	highestQC *QC
	phaseQCs  map[types.Phase]*QC

	cb      Callbacks
	metrics *metrics.ConsensusCollector
}

// New constructs an Engine at height 1 (genesis pending), with no
// active proposal. committeeSize is injected rather than stored
// because the committee can change between rounds (§4.C re-election).
func New(nodeID types.NodeID, shardID types.ShardID, committeeSize func() int, timeout time.Duration, chain *blockchain.Chain, cb Callbacks, collector *metrics.ConsensusCollector) *Engine {
	if cb.OnLog == nil {
		cb.OnLog = func(string) {}
	}
	return &Engine{
		nodeID:        nodeID,
		shardID:       shardID,
		committeeSize: committeeSize,
		phase:         types.PhasePrepare,
		state:         StateIdle,
		height:        1,
		chain:         chain,
		timeout:       timeout,
		phaseQCs:      make(map[types.Phase]*QC),
		cb:            cb,
		metrics:       collector,
	}
}

func (e *Engine) CurrentPhase() types.Phase      { return e.phase }
func (e *Engine) CurrentView() types.View        { return e.view }
func (e *Engine) CurrentHeight() types.BlockHeight { return e.height }
func (e *Engine) HighestQC() *QC                 { return e.highestQC }
func (e *Engine) IsInProgress() bool             { return e.state == StateProposed }
func (e *Engine) State() RoundState              { return e.state }

// ProposeBlock starts a new round as leader: builds a proposal from
// txs, resets the phase to PREPARE, and emits it via OnProposal (§4.D
// propose_block). Refuses if a round is already in progress or txs is
// empty.
func (e *Engine) ProposeBlock(txs []*message.Transaction) bool {
	if e.state == StateProposed || len(txs) == 0 {
		return false
	}
	p := message.MakeProposal(e.nodeID, e.shardID, e.height, e.previousHash, txs, roundNow())
	p.View = e.view
	e.active = p
	e.buffer = newVoteBuffer(p.ProposalID)
	e.phase = types.PhasePrepare
	e.state = StateProposed
	e.roundAt = p.ProposalTime
	e.phaseQCs = make(map[types.Phase]*QC)
	if e.metrics != nil {
		e.metrics.Proposals.WithLabelValues(shardLabel(e.shardID)).Inc()
	}
	e.cb.OnLog("proposed " + p.ProposalID + " at height " + heightString(p.Height))
	if e.cb.OnProposal != nil {
		e.cb.OnProposal(p)
	}
	return true
}

// HandleProposal validates an incoming proposal from the leader and,
// if valid, adopts it as the active round and casts a PREPARE vote
// (§4.D handle_proposal / proposal validation rules: non-empty
// transaction list, view at least the replica's current view, height
// and chain-linkage match).
func (e *Engine) HandleProposal(p *message.Proposal) bool {
	if !e.validateProposal(p) {
		e.cb.OnLog("rejected proposal " + p.ProposalID)
		return false
	}
	e.active = p
	e.buffer = newVoteBuffer(p.ProposalID)
	e.phase = types.PhasePrepare
	e.state = StateProposed
	e.roundAt = roundNow()
	e.phaseQCs = make(map[types.Phase]*QC)
	e.castVote(types.PhasePrepare)
	return true
}

func (e *Engine) validateProposal(p *message.Proposal) bool {
	if p == nil || p.ProposalID == "" || p.BlockHash == "" {
		return false
	}
	if len(p.Transactions) == 0 {
		return false
	}
	if p.View < e.view {
		return false
	}
	if p.Height != e.height {
		return false
	}
	if p.ShardID != e.shardID {
		return false
	}
	if p.PreviousHash != e.previousHash {
		return false
	}
	for _, tx := range p.Transactions {
		if !tx.Valid() {
			return false
		}
	}
	return true
}

// castVote builds this node's own vote for phase against the active
// proposal and routes it through both the local buffer and OnVote, so
// the engine's own vote participates in quorum counting exactly like
// a peer's.
func (e *Engine) castVote(phase types.Phase) {
	v := &message.Vote{
		ProposalID: e.active.ProposalID,
		VoterID:    e.nodeID,
		Phase:      phase,
		Approve:    true,
		VoteTime:   roundNow(),
	}
	v.Signature = signVote(e.nodeID, v)
	e.HandleVote(v)
	if e.cb.OnVote != nil {
		e.cb.OnVote(v)
	}
}

// HandleVote records an incoming vote for the active proposal and, if
// this brings the current phase to quorum, assembles a QC and either
// advances the phase (leader) or commits (at COMMIT quorum) (§4.D
// handle_vote / phase-advance protocol / commit logic).
func (e *Engine) HandleVote(v *message.Vote) bool {
	if e.state != StateProposed || e.active == nil || v.ProposalID != e.active.ProposalID {
		return false
	}
	if !e.buffer.add(v) {
		return false // double vote, first one wins
	}
	n := e.committeeSize()
	q := QuorumSize(n)
	if e.buffer.count(v.Phase) < q {
		return false
	}
	qc := &QC{
		ProposalID: e.active.ProposalID,
		Phase:      v.Phase,
		Height:     e.active.Height,
		View:       e.view,
		Votes:      e.buffer.votes(v.Phase),
		Timestamp:  roundNow(),
	}
	e.phaseQCs[v.Phase] = qc
	e.highestQC = qc

	if v.Phase == types.PhaseCommit {
		e.commit(qc)
		return true
	}

	next, ok := v.Phase.Next()
	if !ok {
		return true
	}
	e.phase = next
	adv := &message.PhaseAdvance{ProposalID: e.active.ProposalID, FromPhase: v.Phase, ToPhase: next}
	if e.metrics != nil {
		e.metrics.PhaseAdvances.WithLabelValues(shardLabel(e.shardID), next.String()).Inc()
	}
	if e.cb.OnPhaseAdvance != nil {
		e.cb.OnPhaseAdvance(adv)
	}
	e.castVote(next)
	return true
}

// HandlePhaseAdvance is a follower's reaction to the leader's
// phase-advance notice: adopt the new phase if it legally follows the
// proposal's current phase, and cast the corresponding vote. Late or
// mismatched notices are ignored, not retransitioned.
func (e *Engine) HandlePhaseAdvance(adv *message.PhaseAdvance) bool {
	if e.state != StateProposed || e.active == nil || adv.ProposalID != e.active.ProposalID {
		return false
	}
	if adv.FromPhase != e.phase {
		return false
	}
	want, ok := e.phase.Next()
	if !ok || want != adv.ToPhase {
		return false
	}
	e.phase = adv.ToPhase
	e.castVote(adv.ToPhase)
	return true
}

func (e *Engine) commit(qc *QC) {
	b := blockchain.FromProposal(e.active, &blockchain.QC{
		ProposalID: qc.ProposalID,
		Phase:      qc.Phase,
		Height:     qc.Height,
		View:       qc.View,
		TotalVotes: qc.TotalVotes(),
		Timestamp:  qc.Timestamp,
	})
	if e.chain != nil {
		e.chain.Append(b)
	}
	e.previousHash = b.BlockHash
	e.height = b.Height + 1
	e.state = StateCommitted
	if e.metrics != nil {
		e.metrics.Commits.WithLabelValues(shardLabel(e.shardID)).Inc()
		e.metrics.Height.WithLabelValues(shardLabel(e.shardID)).Set(float64(b.Height))
	}
	e.cb.OnLog("committed height " + heightString(b.Height))
	if e.cb.OnCommit != nil {
		e.cb.OnCommit(b)
	}
	e.resetToIdle()
}

// HandleTimeout aborts the active round if timeout has elapsed since
// it started, returning the round's unconsumed transactions so the
// caller can requeue them into its mempool (§4.D handle_timeout).
func (e *Engine) HandleTimeout(now time.Time) ([]*message.Transaction, bool) {
	if e.state != StateProposed {
		return nil, false
	}
	if now.Sub(e.roundAt) < e.timeout {
		return nil, false
	}
	var txs []*message.Transaction
	if e.active != nil {
		txs = e.active.Transactions
	}
	e.state = StateTimedOut
	if e.metrics != nil {
		e.metrics.Timeouts.WithLabelValues(shardLabel(e.shardID)).Inc()
	}
	e.view++
	e.cb.OnLog("round timed out, advancing to view " + viewString(e.view))
	e.resetToIdle()
	return txs, true
}

// CancelIfLeader drops the active round without penalty when the
// leader that proposed it has just been replaced by re-election
// (resolves the spec's Open Question on leadership-change-mid-round:
// cancel rather than let a stale round linger).
func (e *Engine) CancelIfLeader(oldLeader types.NodeID) []*message.Transaction {
	if e.state != StateProposed || e.active == nil || e.active.LeaderID != oldLeader {
		return nil
	}
	txs := e.active.Transactions
	e.resetToIdle()
	return txs
}

func (e *Engine) resetToIdle() {
	e.active = nil
	e.buffer = nil
	e.phase = types.PhasePrepare
	e.state = StateIdle
}

// SyncToHeight fast-forwards the engine's height/previous-hash past a
// block obtained out of band (e.g. via the sync component), used when
// this node fell behind and caught up without running the round for
// those heights itself.
func (e *Engine) SyncToHeight(b *blockchain.Block) {
	if b.Height < e.height {
		return
	}
	if e.chain != nil {
		e.chain.Append(b)
	}
	e.previousHash = b.BlockHash
	e.height = b.Height + 1
	e.resetToIdle()
}
