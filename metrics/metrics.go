// Package metrics exposes Prometheus collectors for every component
// that the teacher's ad-hoc measure package logged by hand
// (measure.PBFTMeasure). Each SPEC_FULL component gets a small named
// collector set instead of one monolithic struct.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConsensusCollector tracks HotStuff engine activity per shard.
type ConsensusCollector struct {
	Proposals   *prometheus.CounterVec
	Commits     *prometheus.CounterVec
	Timeouts    *prometheus.CounterVec
	PhaseAdvances *prometheus.CounterVec
	Height      *prometheus.GaugeVec
}

func NewConsensusCollector(reg prometheus.Registerer) *ConsensusCollector {
	c := &ConsensusCollector{
		Proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tribft_consensus_proposals_total",
			Help: "Total proposals initiated by a leader, by shard.",
		}, []string{"shard"}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tribft_consensus_commits_total",
			Help: "Total blocks committed, by shard.",
		}, []string{"shard"}),
		Timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tribft_consensus_timeouts_total",
			Help: "Total consensus rounds abandoned by timeout, by shard.",
		}, []string{"shard"}),
		PhaseAdvances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tribft_consensus_phase_advances_total",
			Help: "Total phase transitions observed, by shard and phase.",
		}, []string{"shard", "phase"}),
		Height: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tribft_consensus_height",
			Help: "Current committed height, by shard.",
		}, []string{"shard"}),
	}
	reg.MustRegister(c.Proposals, c.Commits, c.Timeouts, c.PhaseAdvances, c.Height)
	return c
}

// ReputationCollector tracks the reputation distribution across all
// registered nodes.
type ReputationCollector struct {
	Average *prometheus.GaugeVec
	Min     *prometheus.GaugeVec
	Max     *prometheus.GaugeVec
	Trusted *prometheus.GaugeVec
	Events  *prometheus.CounterVec
}

func NewReputationCollector(reg prometheus.Registerer) *ReputationCollector {
	c := &ReputationCollector{
		Average: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tribft_reputation_average",
			Help: "Average final reputation across registered nodes.",
		}, []string{"shard"}),
		Min: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tribft_reputation_min",
			Help: "Minimum final reputation across registered nodes.",
		}, []string{"shard"}),
		Max: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tribft_reputation_max",
			Help: "Maximum final reputation across registered nodes.",
		}, []string{"shard"}),
		Trusted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tribft_reputation_trusted_count",
			Help: "Number of nodes currently in the trusted tier.",
		}, []string{"shard"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tribft_reputation_events_total",
			Help: "Total reputation events applied, by event type.",
		}, []string{"event"}),
	}
	reg.MustRegister(c.Average, c.Min, c.Max, c.Trusted, c.Events)
	return c
}

// ShardCollector tracks the Regional Shard Manager's rebalance activity.
type ShardCollector struct {
	Splits  prometheus.Counter
	Merges  prometheus.Counter
	Count   prometheus.Gauge
	Members *prometheus.GaugeVec
}

func NewShardCollector(reg prometheus.Registerer) *ShardCollector {
	c := &ShardCollector{
		Splits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tribft_shard_splits_total",
			Help: "Total shard split operations.",
		}),
		Merges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tribft_shard_merges_total",
			Help: "Total shard merge operations.",
		}),
		Count: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tribft_shard_count",
			Help: "Current number of shards.",
		}),
		Members: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tribft_shard_members",
			Help: "Current member count, by shard.",
		}, []string{"shard"}),
	}
	reg.MustRegister(c.Splits, c.Merges, c.Count, c.Members)
	return c
}
