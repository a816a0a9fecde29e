package reputation

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"tribft/types"
	"tribft/vrf"
)

// EventID identifies a pending cross-verification event.
type EventID string

// VerificationCallback is invoked once an event's verdict is resolved;
// grounded on original_source/reputation/LowRepVerifier.h's
// VerificationCallback, extended with the event payload the Reputation
// Manager needs to either apply to subject or penalize reporter for a
// false report.
type VerificationCallback func(reporter, subject types.NodeID, event EventType, tag string, confirmed bool)

type pendingEvent struct {
	reporter    types.NodeID
	subject     types.NodeID
	event       EventType
	tag         string
	reporterRep float64
	submittedAt time.Time
	verifiers   []types.NodeID
	votes       map[types.NodeID]bool
	verified    bool
	result      bool
}

// LowRepVerifier implements the low-reputation cross-verification
// mechanism described (but not given operations) by spec.md §1/§4.A,
// and fully specified in original_source/reputation/LowRepVerifier.h:
// events reported by candidate-tier nodes (R < 0.2) are queued and
// require majority confirmation from a panel of trusted verifiers
// before they take effect.
type LowRepVerifier struct {
	pending   map[EventID]*pendingEvent
	verifiers int
	threshold float64
	onLog     LogFunc
	onResult  VerificationCallback
}

func NewLowRepVerifier(verifiersPerEvent int, threshold float64, onLog LogFunc, onResult VerificationCallback) *LowRepVerifier {
	if verifiersPerEvent <= 0 {
		verifiersPerEvent = 3
	}
	if threshold <= 0 {
		threshold = 0.67
	}
	if onLog == nil {
		onLog = func(string) {}
	}
	return &LowRepVerifier{
		pending:   make(map[EventID]*pendingEvent),
		verifiers: verifiersPerEvent,
		threshold: threshold,
		onLog:     onLog,
		onResult:  onResult,
	}
}

// SubmitEvent queues a candidate-tier node's reported event against
// subject for cross-verification and returns its id.
func (v *LowRepVerifier) SubmitEvent(reporter, subject types.NodeID, event EventType, tag string, reporterRep float64) EventID {
	id := EventID(uuid.New().String())
	v.pending[id] = &pendingEvent{
		reporter:    reporter,
		subject:     subject,
		event:       event,
		tag:         tag,
		reporterRep: reporterRep,
		submittedAt: time.Now(),
		votes:       make(map[types.NodeID]bool),
	}
	v.onLog("low-rep event queued for verification: " + string(id))
	return id
}

// AssignVerifiers deterministically selects verifiersPerEvent trusted
// nodes for eventID using a seed-derived score, mirroring
// VRFSelector's own top-N-by-score sortition (vrf.ScoreNode) rather
// than a separate scoring function.
func (v *LowRepVerifier) AssignVerifiers(eventID EventID, trustedNodes []types.NodeID, seed uint64) []types.NodeID {
	p, ok := v.pending[eventID]
	if !ok {
		return nil
	}
	type scored struct {
		node  types.NodeID
		score uint64
	}
	candidates := make([]scored, len(trustedNodes))
	for i, n := range trustedNodes {
		candidates[i] = scored{n, vrf.ScoreNode(n, seed)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].node < candidates[j].node
	})
	n := v.verifiers
	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]types.NodeID, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].node
	}
	p.verifiers = out
	return out
}

// SubmitVerification records one verifier's confirm/reject vote.
// Duplicate votes from the same verifier are ignored, matching §4.A's
// event-dedup rule for duplicate protocol reports.
func (v *LowRepVerifier) SubmitVerification(eventID EventID, verifier types.NodeID, confirm bool) {
	p, ok := v.pending[eventID]
	if !ok || p.verified {
		return
	}
	if _, already := p.votes[verifier]; already {
		return
	}
	p.votes[verifier] = confirm
	v.checkThreshold(eventID, p)
}

func (v *LowRepVerifier) checkThreshold(eventID EventID, p *pendingEvent) {
	if len(p.verifiers) == 0 {
		return
	}
	confirms, rejects := 0, 0
	for _, c := range p.votes {
		if c {
			confirms++
		} else {
			rejects++
		}
	}
	total := len(p.verifiers)
	if float64(confirms)/float64(total) >= v.threshold {
		p.verified, p.result = true, true
	} else if float64(rejects)/float64(total) >= v.threshold {
		p.verified, p.result = true, false
	} else if confirms+rejects < total {
		return
	} else {
		// all verifiers responded, no majority: treat as rejected.
		p.verified, p.result = true, false
	}
	if v.onResult != nil {
		v.onResult(p.reporter, p.subject, p.event, p.tag, p.result)
	}
}

func (v *LowRepVerifier) IsEventVerified(eventID EventID) bool {
	p, ok := v.pending[eventID]
	return ok && p.verified
}

func (v *LowRepVerifier) VerificationResult(eventID EventID) bool {
	p, ok := v.pending[eventID]
	return ok && p.result
}

func (v *LowRepVerifier) PendingCount() int {
	return len(v.pending)
}

// CleanupExpired drops events that never reached a verdict within
// timeout of submission.
func (v *LowRepVerifier) CleanupExpired(now time.Time, timeout time.Duration) {
	for id, p := range v.pending {
		if now.Sub(p.submittedAt) > timeout {
			delete(v.pending, id)
		}
	}
}
