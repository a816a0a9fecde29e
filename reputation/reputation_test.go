package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribft/types"
)

func TestScoreBoundedZeroOne(t *testing.T) {
	r := NewRecord("n1", 0.5)
	for i := 0; i < 500; i++ {
		r.applyEvent(EventMalicious, "")
	}
	assert.GreaterOrEqual(t, r.Score(), 0.0)

	r2 := NewRecord("n2", 0.5)
	for i := 0; i < 500; i++ {
		r2.applyEvent(EventValidProposal, "")
	}
	assert.LessOrEqual(t, r2.Score(), 1.0)
}

func TestPositiveEventsStrictlyDiminish(t *testing.T) {
	r := NewRecord("n1", 0.5)
	d1 := r.applyEvent(EventValidProposal, "")
	d2 := r.applyEvent(EventValidProposal, "")
	assert.Greater(t, d1, d2, "the second identical positive event must yield a smaller delta than the first")
}

func TestReanchorAtThreshold(t *testing.T) {
	r := NewRecord("n1", 0.5)
	for i := 0; i < ReanchorThreshold-1; i++ {
		r.applyEvent(EventCorrectVote, "")
	}
	assert.Equal(t, ReanchorThreshold-1, r.LocalCount)
	r.applyEvent(EventCorrectVote, "")
	assert.Equal(t, 0, r.LocalCount, "local count resets once it reaches the reanchor threshold")
	assert.Equal(t, r.GlobalRep, r.LocalPerf, "global reputation absorbs local performance at reanchor")
}

func TestTierOfBoundaries(t *testing.T) {
	assert.Equal(t, types.TierTrusted, TierOf(0.8))
	assert.Equal(t, types.TierStandard, TierOf(0.2))
	assert.Equal(t, types.TierCandidate, TierOf(0.1999))
}

func TestManagerRecordEventAutoRegisters(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.RecordEvent("unknown", EventValidProposal, "")
	assert.Greater(t, m.Score("unknown"), DefaultInitialScore)
}

func TestManagerTopN(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.Register("a")
	m.Register("b")
	m.RecordEvent("a", EventValidProposal, "")
	top := m.TopN(1)
	require.Len(t, top, 1)
	assert.Equal(t, types.NodeID("a"), top[0])
}

func TestManagerStatisticsEmpty(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	stats := m.Statistics()
	assert.Equal(t, 0, stats.Count)
}

func TestManagerCandidateTierRoutesThroughLowRep(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.registerWith("low", 0.05)
	m.RecordEvent("low", EventCorrectVote, "report-1")
	assert.Equal(t, 0.05, m.Score("low"), "a candidate-tier reporter's event must not apply until cross-verified")
	assert.Equal(t, 1, m.lowRep.PendingCount())
}

func TestRecordReportedEventResolvesAgainstTrustedPanel(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.registerWith("low", 0.05)
	m.registerWith("v1", 0.9)
	m.registerWith("v2", 0.9)
	m.registerWith("v3", 0.9)
	m.registerWith("suspect", 0.05) // already candidate-tier, so the panel corroborates the report

	reporterBefore := m.Score("low")
	m.RecordReportedEvent("low", "suspect", EventTimeout, "report-1")

	assert.Less(t, m.Score("suspect"), 0.05, "a confirmed report must apply the event to the subject")
	assert.Equal(t, reporterBefore, m.Score("low"), "a confirmed report must not penalize the reporter")
}

func TestApplyDecayMovesTowardDefault(t *testing.T) {
	m := NewManager(Config{InitialScore: 0.5, DecayRate: 1.0}, nil, nil)
	m.registerWith("n1", 0.9)
	m.ApplyDecay()
	assert.InDelta(t, 0.5, m.Score("n1"), 1e-9)
}
