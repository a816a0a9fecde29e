// Package reputation implements the Reputation Manager (§4.A): per-node
// dual (global/local) reputation scoring with marginal-diminishing
// rewards, decay toward the default, and trust-tier classification. It
// also carries the low-reputation cross-verification sub-component
// (see lowrep.go), a feature the distilled spec only names in passing
// but original_source/reputation/LowRepVerifier.h specifies in full.
package reputation

import (
	"math"
	"time"

	"tribft/types"
)

// EventType is the event taxonomy from §4.A's table.
type EventType byte

const (
	EventValidProposal EventType = iota
	EventInvalidProposal
	EventCorrectVote
	EventIncorrectVote
	EventSuccessfulConsensus
	EventFailedConsensus
	EventSuccessfulTx
	EventFailedTx
	EventTimeout
	EventMalicious
)

func (e EventType) String() string {
	switch e {
	case EventValidProposal:
		return "valid_proposal"
	case EventInvalidProposal:
		return "invalid_proposal"
	case EventCorrectVote:
		return "correct_vote"
	case EventIncorrectVote:
		return "incorrect_vote"
	case EventSuccessfulConsensus:
		return "successful_consensus"
	case EventFailedConsensus:
		return "failed_consensus"
	case EventSuccessfulTx:
		return "successful_tx"
	case EventFailedTx:
		return "failed_tx"
	case EventTimeout:
		return "timeout"
	case EventMalicious:
		return "malicious"
	default:
		return "unknown_event"
	}
}

// Positive reports whether the event carries a positive reputation
// delta (and is therefore subject to marginal diminishing).
func (e EventType) Positive() bool {
	switch e {
	case EventValidProposal, EventCorrectVote, EventSuccessfulConsensus, EventSuccessfulTx:
		return true
	default:
		return false
	}
}

// baseWeight returns the event's base weight per §4.A's table. Positive
// events use β; negative events use their own γ (malicious behavior has
// the harshest γ).
func (e EventType) baseWeight() float64 {
	switch e {
	case EventValidProposal, EventCorrectVote, EventSuccessfulConsensus, EventSuccessfulTx:
		return 0.05 // β
	case EventInvalidProposal:
		return 0.08 // γ
	case EventMalicious:
		return 0.20 // γ
	default: // IncorrectVote, FailedConsensus, FailedTx, Timeout
		return 0.05 // γ
	}
}

// Lambda is λ in the final-reputation weighting formula (§3).
const Lambda = 0.1

// ReanchorThreshold is the number of local interactions after which
// R_g absorbs R_l (§9 open question, resolved to 100).
const ReanchorThreshold = 100

// RecentEventCap bounds the per-record recent-event queue (§5).
const RecentEventCap = 100

// TrustedThreshold / StandardThreshold are the tier boundaries (§3).
const (
	TrustedThreshold  = 0.8
	StandardThreshold = 0.2
)

// EventRecord is one entry in a record's bounded recent-event queue.
type EventRecord struct {
	Type EventType
	At   time.Time
	Tag  string
}

// Record is a node's reputation record, §3 "Reputation record".
type Record struct {
	Node types.NodeID

	GlobalRep  float64 // R_g
	LocalPerf  float64 // R_l
	LocalCount int     // N_l

	ValidProposals, InvalidProposals     int
	CorrectVotes, IncorrectVotes         int
	SuccessfulConsensus, FailedConsensus int
	SuccessfulTx, FailedTx               int
	Timeouts                             int
	MaliciousCount                       int

	LastUpdate time.Time
	Recent     []EventRecord
}

// NewRecord creates a record seeded with initialScore for both
// components, matching register's "idempotent, default 0.5" behavior.
func NewRecord(node types.NodeID, initialScore float64) *Record {
	return &Record{
		Node:       node,
		GlobalRep:  initialScore,
		LocalPerf:  initialScore,
		LastUpdate: time.Now(),
	}
}

// weight returns w = exp(-λ·N_l), the blend factor between R_g and R_l.
func (r *Record) weight() float64 {
	return math.Exp(-Lambda * float64(r.LocalCount))
}

// Score computes the final reputation on demand — it is never cached,
// per §9's design note — as w·R_g + (1-w)·R_l.
func (r *Record) Score() float64 {
	w := r.weight()
	return w*r.GlobalRep + (1-w)*r.LocalPerf
}

// Tier classifies the record's current score (§3).
func (r *Record) Tier() types.TrustTier {
	return TierOf(r.Score())
}

// TierOf classifies a bare score value without a Record.
func TierOf(score float64) types.TrustTier {
	switch {
	case score >= TrustedThreshold:
		return types.TierTrusted
	case score >= StandardThreshold:
		return types.TierStandard
	default:
		return types.TierCandidate
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// applyEvent mutates the record in place for one event occurrence,
// implementing the marginal-diminishing rule (§4.A): positive events
// scale by 1/(1+R_curr); negative events are a constant penalty.
func (r *Record) applyEvent(e EventType, tag string) float64 {
	before := r.Score()

	var delta float64
	if e.Positive() {
		delta = e.baseWeight() / (1 + before)
	} else {
		delta = -e.baseWeight()
	}

	r.LocalPerf = clamp01(r.LocalPerf + delta)
	r.LocalCount++
	r.LastUpdate = time.Now()

	if r.LocalCount >= ReanchorThreshold {
		r.GlobalRep = r.LocalPerf
		r.LocalCount = 0
	}

	r.recordCounter(e)
	r.pushRecent(EventRecord{Type: e, At: r.LastUpdate, Tag: tag})

	return delta
}

func (r *Record) recordCounter(e EventType) {
	switch e {
	case EventValidProposal:
		r.ValidProposals++
	case EventInvalidProposal:
		r.InvalidProposals++
	case EventCorrectVote:
		r.CorrectVotes++
	case EventIncorrectVote:
		r.IncorrectVotes++
	case EventSuccessfulConsensus:
		r.SuccessfulConsensus++
	case EventFailedConsensus:
		r.FailedConsensus++
	case EventSuccessfulTx:
		r.SuccessfulTx++
	case EventFailedTx:
		r.FailedTx++
	case EventTimeout:
		r.Timeouts++
	case EventMalicious:
		r.MaliciousCount++
	}
}

func (r *Record) pushRecent(ev EventRecord) {
	r.Recent = append(r.Recent, ev)
	if len(r.Recent) > RecentEventCap {
		r.Recent = r.Recent[len(r.Recent)-RecentEventCap:]
	}
}

// decay moves both components a fraction δ toward the default,
// matching apply_decay's "R ← R·(1-δ) + 0.5·δ" applied to the
// underlying components rather than the (always-derived) final score.
func (r *Record) decay(delta float64, defaultScore float64) {
	r.GlobalRep = r.GlobalRep*(1-delta) + defaultScore*delta
	r.LocalPerf = r.LocalPerf*(1-delta) + defaultScore*delta
}
