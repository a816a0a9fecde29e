// Package node is the per-participant harness: it wires the
// Consensus Engine, mempool, lightweight sync and byzantine tracker
// for one simulated vehicle/RSU together with the capabilities
// injected from outside (transport, mobility oracle, clock), per §9's
// "capability injection, not component back-pointers" design note.
// Grounded on the teacher's node.Node interface and its handle-map
// dispatch loop, reshaped from the teacher's reflect-based Register
// dispatch (built for an open set of wire message types) down to a
// fixed, typed handler set since TriBFT's message surface is closed
// (§3 enumerates every message type).
package node

import (
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"tribft/blockchain"
	"tribft/byzantine"
	"tribft/consensus"
	"tribft/dlog"
	"tribft/mempool"
	"tribft/message"
	"tribft/metrics"
	"tribft/reputation"
	"tribft/sync"
	"tribft/types"
)

// Transport is the injected best-effort broadcast/unicast capability
// (§6 "Transport: broadcast(payload), no delivery/ordering guarantee").
// RequestFullBlock issues an out-of-band request for a specific
// height's full block, answered by whichever committee member holds
// it (§4.E).
type Transport interface {
	Broadcast(payload interface{})
	SendTo(node types.NodeID, payload interface{})
	RequestFullBlock(requester types.NodeID, requestID string, height types.BlockHeight)
}

// Collaborators bundles every capability a Node needs from outside
// its own package (§6's collaborator list).
type Collaborators struct {
	Transport    Transport
	LocationOf   func(types.NodeID) types.GeoPoint
	Now          func() time.Time
	Reputation   *reputation.Manager
	Byzantine    *byzantine.Tracker
	IsCommittee  func(types.NodeID) bool // is this node currently in its shard's elected committee
	CommitteeSize func() int
}

// Node is one participant: a vehicle or RSU running the consensus
// engine for whichever shard it currently belongs to, plus the
// lightweight sync state it keeps regardless of committee membership.
type Node struct {
	id      types.NodeID
	shardID types.ShardID
	isByz   bool

	logger  *dlog.Logger
	engine  *consensus.Engine
	pool    *mempool.Pool
	syncer  *sync.Sync
	limiter *rate.Limiter

	collab Collaborators
}

// New constructs a Node and its Consensus Engine. timeout and
// poolCapacity come from config.Config; collector/natsAddress wire
// the engine's metrics and the node's distributed logger. blockInterval
// gates ProposeIfLeader's cadence (§6 block_interval); a non-positive
// value leaves proposing unthrottled.
func New(id types.NodeID, shardID types.ShardID, isByz bool, timeout time.Duration, poolCapacity int, chain *blockchain.Chain, collab Collaborators, collector *metrics.ConsensusCollector, natsAddress string, blockInterval time.Duration) *Node {
	var logger *dlog.Logger
	if natsAddress != "" {
		logger = dlog.NewWithNATS(string(id), shardLabel(shardID), natsAddress)
	} else {
		logger = dlog.New(string(id), shardLabel(shardID))
	}
	n := &Node{
		id:      id,
		shardID: shardID,
		isByz:   isByz,
		logger:  logger,
		pool:    mempool.New(poolCapacity),
		limiter: rate.NewLimiter(rate.Every(blockInterval), 1),
		collab:  collab,
	}
	n.syncer = sync.New(sync.RoleFullBlockCapable, logger.Component("sync"), func(requestID string, height types.BlockHeight) {
		collab.Transport.RequestFullBlock(id, requestID, height)
	})
	n.engine = consensus.New(id, shardID, collab.CommitteeSize, timeout, chain, consensus.Callbacks{
		OnProposal:     n.broadcastProposal,
		OnVote:         n.broadcastVote,
		OnPhaseAdvance: n.broadcastPhaseAdvance,
		OnCommit:       n.onCommit,
		OnLog:          logger.Component("consensus"),
	}, collector)
	return n
}

func shardLabel(s types.ShardID) string {
	if s == types.NoShard {
		return "none"
	}
	return strconv.Itoa(int(s))
}

func (n *Node) ID() types.NodeID      { return n.id }
func (n *Node) ShardID() types.ShardID { return n.shardID }
func (n *Node) IsByz() bool           { return n.isByz }
func (n *Node) Engine() *consensus.Engine { return n.engine }
func (n *Node) Pool() *mempool.Pool   { return n.pool }
func (n *Node) Sync() *sync.Sync      { return n.syncer }

func (n *Node) broadcastProposal(p *message.Proposal) {
	if n.isByz {
		return // silence-attack stub (§7 structural error: degrade, don't crash)
	}
	n.collab.Transport.Broadcast(p)
}

func (n *Node) broadcastVote(v *message.Vote) {
	if n.isByz {
		return
	}
	n.collab.Transport.Broadcast(v)
}

func (n *Node) broadcastPhaseAdvance(a *message.PhaseAdvance) {
	if n.isByz {
		return
	}
	n.collab.Transport.Broadcast(a)
}

func (n *Node) onCommit(b *blockchain.Block) {
	n.syncer.SyncHeader(blockchain.HeaderOf(b))
	if n.collab.Reputation != nil {
		n.collab.Reputation.UpdateForProposal(n.id, b.Proposer, true)
	}
	n.collab.Transport.Broadcast(blockchain.HeaderOf(b))
}

// ReceiveProposal is the handler for an inbound Proposal message. n
// is the reporter of record for the validity judgment it renders,
// since every replica validates the proposal itself rather than
// trusting a peer's verdict (§4.A reporter-gated reputation events).
func (n *Node) ReceiveProposal(p *message.Proposal) {
	if !n.engine.HandleProposal(p) {
		if n.collab.Reputation != nil {
			n.collab.Reputation.UpdateForProposal(n.id, p.LeaderID, false)
		}
		return
	}
	if n.collab.Reputation != nil {
		n.collab.Reputation.UpdateForProposal(n.id, p.LeaderID, true)
	}
}

// ReceiveVote is the handler for an inbound Vote message.
func (n *Node) ReceiveVote(v *message.Vote) {
	n.engine.HandleVote(v)
	if n.collab.Reputation != nil {
		n.collab.Reputation.UpdateForVote(n.id, v.VoterID, v.Approve)
	}
}

// ReceivePhaseAdvance is the handler for an inbound PhaseAdvance
// notice from the current leader.
func (n *Node) ReceivePhaseAdvance(a *message.PhaseAdvance) {
	n.engine.HandlePhaseAdvance(a)
}

// Tick drives the round-timeout check; the harness calls this on
// every clock tick regardless of whether this node is a leader.
func (n *Node) Tick() {
	now := time.Now()
	if n.collab.Now != nil {
		now = n.collab.Now()
	}
	if txs, timedOut := n.engine.HandleTimeout(now); timedOut {
		n.pool.Requeue(txs)
	}
}

// PenalizeLeaderTimeout is called by the harness (which knows the
// round's leader from the shard manager) after a Tick reports a
// timeout, attributing the timeout penalty to the leader that failed
// to drive the round to commit (§6 PenalizeTimeout).
func (n *Node) PenalizeLeaderTimeout(leader types.NodeID) {
	if n.collab.Reputation != nil {
		n.collab.Reputation.PenalizeTimeout(n.id, leader)
	}
}

// ReceiveReportByzantine records a peer-observed misbehavior report.
// A report from a candidate-tier reporter is not trusted outright: it
// is routed through the Reputation Manager's low-reputation
// cross-verification instead of the corroboration-counting Tracker,
// per §4.A's reporter-gated rule (a low-rep accuser alone never
// confirms a suspect). A report from a standard-or-better reporter
// still needs independent corroboration from the Tracker before it
// costs the suspect anything.
func (n *Node) ReceiveReportByzantine(r message.ReportByzantine) bool {
	if n.collab.Byzantine == nil {
		return false
	}
	if n.collab.Reputation != nil && n.collab.Reputation.Tier(r.Reporter) == types.TierCandidate {
		n.collab.Reputation.RecordReportedEvent(r.Reporter, r.Suspect, reputation.EventMalicious, r.Reason)
		return false
	}
	confirmed := n.collab.Byzantine.Record(r)
	if confirmed && n.collab.Reputation != nil {
		n.collab.Reputation.PenalizeMalicious(r.Suspect)
	}
	return confirmed
}

// ProposeIfLeader drains batch_size transactions from the mempool and
// proposes a block, if this node currently leads its shard, holds
// enough pending transactions, and block_interval has elapsed since
// its last proposal (§4.D propose_block / §6 batch_size, block_interval).
func (n *Node) ProposeIfLeader(isLeader bool, batchSize int) bool {
	if !isLeader || n.engine.IsInProgress() || n.pool.Size() < batchSize {
		return false
	}
	if !n.limiter.Allow() {
		return false
	}
	return n.engine.ProposeBlock(n.pool.Take(batchSize))
}
