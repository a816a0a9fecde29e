package reputation

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"tribft/metrics"
	"tribft/types"
)

// LogFunc matches every component's injected on_log callback (§6, §9).
type LogFunc func(string)

// DefaultDecayRate and DefaultInitialScore are the §6 defaults; a Manager may be
// constructed with different values via Config.
const (
	DefaultDecayRate    = 0.01
	DefaultInitialScore = 0.5
)

// Config holds the Reputation Manager's initialization options.
type Config struct {
	InitialScore float64
	DecayRate    float64
}

func DefaultConfig() Config {
	return Config{InitialScore: DefaultInitialScore, DecayRate: DefaultDecayRate}
}

// Manager is the Reputation Manager (§4.A). Per §5's concurrency model,
// a Manager is only ever driven from one single-threaded event loop (the
// simulation in main shares one Manager among all of its nodes on that
// loop) — there is no internal locking here by design.
type Manager struct {
	cfg     Config
	records map[types.NodeID]*Record
	onLog   LogFunc
	metrics *metrics.ReputationCollector

	lowRep *LowRepVerifier
}

func NewManager(cfg Config, onLog LogFunc, collector *metrics.ReputationCollector) *Manager {
	if onLog == nil {
		onLog = func(string) {}
	}
	m := &Manager{
		cfg:     cfg,
		records: make(map[types.NodeID]*Record),
		onLog:   onLog,
		metrics: collector,
	}
	m.lowRep = NewLowRepVerifier(3, 0.67, onLog, m.onVerificationResolved)
	return m
}

// Register is idempotent; registering an already-known node is a no-op
// (§4.A: "fails silently if already registered").
func (m *Manager) Register(node types.NodeID) {
	m.registerWith(node, m.cfg.InitialScore)
}

func (m *Manager) registerWith(node types.NodeID, score float64) {
	if _, ok := m.records[node]; ok {
		return
	}
	m.records[node] = NewRecord(node, score)
}

// Unregister removes a node's record and reports whether it existed.
func (m *Manager) Unregister(node types.NodeID) bool {
	_, ok := m.records[node]
	delete(m.records, node)
	return ok
}

// Score returns node's final reputation, or the default for unknown nodes.
func (m *Manager) Score(node types.NodeID) float64 {
	if r, ok := m.records[node]; ok {
		return r.Score()
	}
	return m.cfg.InitialScore
}

// Tier returns node's current trust tier.
func (m *Manager) Tier(node types.NodeID) types.TrustTier {
	return TierOf(m.Score(node))
}

// RecordEvent applies event's weight to node, treating node as both
// the reporter and the subject. Because node is also the reporter, a
// candidate-tier node's own events go through the same cross-verification
// gate as any other candidate-tier report. See RecordReportedEvent for
// the case of one node reporting on another.
func (m *Manager) RecordEvent(node types.NodeID, event EventType, tag string) {
	m.RecordReportedEvent(node, node, event, tag)
}

// RecordReportedEvent applies event (about subject) as reported by
// reporter, auto-registering either node with the default score first
// (§4.A failure semantics). A candidate-tier reporter's report is not
// trusted outright: it is queued for cross-verification by a panel of
// trusted nodes instead of applying immediately (§4.A low-reputation
// gating); see lowrep.go.
func (m *Manager) RecordReportedEvent(reporter, subject types.NodeID, event EventType, tag string) {
	rr, ok := m.records[reporter]
	if !ok {
		m.registerWith(reporter, m.cfg.InitialScore)
		rr = m.records[reporter]
	}
	if _, ok := m.records[subject]; !ok {
		m.registerWith(subject, m.cfg.InitialScore)
	}

	if rr.Tier() == types.TierCandidate && !(event == EventMalicious && reporter == subject) {
		id := m.lowRep.SubmitEvent(reporter, subject, event, tag, rr.Score())
		m.resolveAgainstPanel(id, subject)
		return
	}

	m.applyToSubject(subject, event, tag)
}

func (m *Manager) applyToSubject(subject types.NodeID, event EventType, tag string) {
	r, ok := m.records[subject]
	if !ok {
		m.registerWith(subject, m.cfg.InitialScore)
		r = m.records[subject]
	}
	delta := r.applyEvent(event, tag)
	if m.metrics != nil {
		m.metrics.Events.WithLabelValues(event.String()).Inc()
	}
	m.onLog(eventLogLine(subject, event, delta))
}

func eventLogLine(node types.NodeID, event EventType, delta float64) string {
	return string(node) + " " + event.String() + " applied"
}

// resolveAgainstPanel assigns eventID to a panel of trusted-tier nodes
// and casts each verifier's vote. The simulation has no independent
// ground-truth oracle for a reported event, so each verifier judges
// using the same fact every node can already observe: whether the
// subject's own current tier already corroborates the claim.
func (m *Manager) resolveAgainstPanel(id EventID, subject types.NodeID) {
	panel := m.lowRep.AssignVerifiers(id, m.CandidatesByTier(types.TierTrusted), uint64(len(id)))
	corroborated := m.Tier(subject) <= types.TierCandidate
	for _, v := range panel {
		m.lowRep.SubmitVerification(id, v, corroborated)
	}
}

// onVerificationResolved is the LowRepVerifier's VerificationCallback:
// confirmed events are applied to subject normally; rejected ones
// penalize reporter for a false report instead.
func (m *Manager) onVerificationResolved(reporter, subject types.NodeID, event EventType, tag string, confirmed bool) {
	if confirmed {
		m.applyToSubject(subject, event, tag)
		return
	}
	m.PenalizeMalicious(reporter)
}

// CleanupExpiredVerifications drops queued cross-verification events
// that never reached a verdict within timeout of submission, so a
// panel that never forms (e.g. no trusted nodes yet) doesn't leak
// pending events forever.
func (m *Manager) CleanupExpiredVerifications(now time.Time, timeout time.Duration) {
	m.lowRep.CleanupExpired(now, timeout)
}

// Convenience wrappers, §4.A. Each takes the reporting node
// explicitly: proposal/vote validity is self-observed (every replica
// computes the same verdict), but the reporter still matters because a
// candidate-tier replica's own observations are no more trusted than
// any other report it makes.

func (m *Manager) UpdateForProposal(reporter, proposer types.NodeID, valid bool) {
	if valid {
		m.RecordReportedEvent(reporter, proposer, EventValidProposal, "")
	} else {
		m.RecordReportedEvent(reporter, proposer, EventInvalidProposal, "")
	}
}

func (m *Manager) UpdateForVote(reporter, voter types.NodeID, correct bool) {
	if correct {
		m.RecordReportedEvent(reporter, voter, EventCorrectVote, "")
	} else {
		m.RecordReportedEvent(reporter, voter, EventIncorrectVote, "")
	}
}

func (m *Manager) UpdateForConsensusSuccess(participants []types.NodeID) {
	for _, p := range participants {
		m.RecordEvent(p, EventSuccessfulConsensus, "")
	}
}

func (m *Manager) PenalizeTimeout(reporter, node types.NodeID) {
	m.RecordReportedEvent(reporter, node, EventTimeout, "")
}

func (m *Manager) PenalizeMalicious(node types.NodeID) {
	m.RecordEvent(node, EventMalicious, "")
}

// ApplyDecay moves every registered score a fraction δ toward the
// default (§4.A).
func (m *Manager) ApplyDecay() {
	for _, r := range m.records {
		r.decay(m.cfg.DecayRate, m.cfg.InitialScore)
	}
}

// TopN returns the k highest-scored registered nodes, stable order by
// id on ties.
func (m *Manager) TopN(k int) []types.NodeID {
	type scored struct {
		node  types.NodeID
		score float64
	}
	all := lo.MapToSlice(m.records, func(n types.NodeID, r *Record) scored {
		return scored{n, r.Score()}
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].node < all[j].node
	})
	if k > len(all) {
		k = len(all)
	}
	out := make([]types.NodeID, k)
	for i := 0; i < k; i++ {
		out[i] = all[i].node
	}
	return out
}

// Statistics summarizes count/average/min/max/trusted-count across
// every registered node (§4.A).
type Statistics struct {
	Count      int
	Average    float64
	Min        float64
	Max        float64
	NumTrusted int
}

func (m *Manager) Statistics() Statistics {
	if len(m.records) == 0 {
		return Statistics{}
	}
	scores := make([]float64, 0, len(m.records))
	trusted := 0
	for _, r := range m.records {
		s := r.Score()
		scores = append(scores, s)
		if TierOf(s) == types.TierTrusted {
			trusted++
		}
	}
	sort.Float64s(scores)
	mean := stat.Mean(scores, nil)
	if m.metrics != nil {
		m.metrics.Average.WithLabelValues("").Set(mean)
		m.metrics.Min.WithLabelValues("").Set(scores[0])
		m.metrics.Max.WithLabelValues("").Set(scores[len(scores)-1])
		m.metrics.Trusted.WithLabelValues("").Set(float64(trusted))
	}
	return Statistics{
		Count:      len(scores),
		Average:    mean,
		Min:        scores[0],
		Max:        scores[len(scores)-1],
		NumTrusted: trusted,
	}
}

// CandidatesByTier returns registered nodes at or above minTier,
// used by the Shard Manager to build VRF candidate lists (§4.C).
func (m *Manager) CandidatesByTier(minTier types.TrustTier) []types.NodeID {
	var out []types.NodeID
	for n, r := range m.records {
		if r.Tier() >= minTier {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
