// Package shard implements the Regional Shard Manager (§4.C):
// geographic clustering, join/leave, split/merge rebalancing, leader
// election and consensus-committee orchestration. Grounded on the
// teacher's election.Static for the leader/committee interface shape
// (ElectLeader/ElectCommittees), generalized from a fixed assignment
// to the geography- and reputation-driven rules §4.C specifies, with
// one election.RankByReputation + vrf.Selector pair per shard instead
// of the teacher's single global committee.
package shard

import (
	"strconv"

	"tribft/election"
	"tribft/geo"
	"tribft/metrics"
	"tribft/reputation"
	"tribft/types"
	"tribft/vrf"
)

// Member is a shard's view of one of its nodes.
type Member struct {
	ID       types.NodeID
	Location types.GeoPoint
}

// Shard is the geographic cluster described in §3 "Shard".
type Shard struct {
	ID         types.ShardID
	Level      types.ShardLevel
	Center     types.GeoPoint
	Radius     float64
	Members    map[types.NodeID]types.GeoPoint
	Leader     types.NodeID
	Created    int64 // logical tick, not wall-clock; the harness stamps these
	LastUpdate int64

	selector *vrf.Selector
}

func (s *Shard) memberIDs() []types.NodeID {
	ids := make([]types.NodeID, 0, len(s.Members))
	for id := range s.Members {
		ids = append(ids, id)
	}
	return ids
}

// Config mirrors the relevant slice of §6's options table.
type Config struct {
	MinShardSize    int
	MaxShardSize    int
	CommitteeSize   int // G, primary committee size
	RedundantSize   int // K
	EpochLength     int // committed blocks per epoch
	DefaultRadius   float64
}

func DefaultConfig() Config {
	return Config{
		MinShardSize:  50,
		MaxShardSize:  250,
		CommitteeSize: 15,
		RedundantSize: 5,
		EpochLength:   10,
		DefaultRadius: 3.0, // km, or whatever spatial unit locations use
	}
}

// Manager owns every shard in the system and the rules that create,
// split, merge and re-elect them. There is exactly one Manager per
// deployment (§9 "singleton/registry design").
type Manager struct {
	cfg            Config
	shards         map[types.ShardID]*Shard
	homeOf         map[types.NodeID]types.ShardID
	nextID         types.ShardID
	reps           *reputation.Manager
	isRSU          func(types.NodeID) bool
	seedFor        func(types.ShardID, types.Epoch) uint64
	onLog          func(string)
	onLeaderChange func(shardID types.ShardID, oldLeader, newLeader types.NodeID)
	metrics        *metrics.ShardCollector
	committedCount int
	lastEpoch      types.Epoch
}

// New constructs an empty Manager. reps supplies reputation scores
// for leader election and committee candidacy; isRSU classifies a
// node as roadside infrastructure for the VRF floor; seedFor computes
// the H(shard_id || epoch) part of the committee sortition seed, into
// which ElectConsensusGroup folds latest_block_hash — all injected
// capabilities per §9. Register OnLeaderChange separately
// to be notified when re-election replaces a shard's leader, so the
// harness can cancel that leader's in-flight round (§9 Open Question:
// leadership change mid-round).
func New(cfg Config, reps *reputation.Manager, isRSU func(types.NodeID) bool, seedFor func(types.ShardID, types.Epoch) uint64, onLog func(string), collector *metrics.ShardCollector) *Manager {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &Manager{
		cfg:     cfg,
		shards:  make(map[types.ShardID]*Shard),
		homeOf:  make(map[types.NodeID]types.ShardID),
		reps:    reps,
		isRSU:   isRSU,
		seedFor: seedFor,
		onLog:   onLog,
		metrics: collector,
	}
}

// OnLeaderChange registers the callback invoked whenever re-election
// replaces a shard's leader with a different node.
func (m *Manager) OnLeaderChange(f func(shardID types.ShardID, oldLeader, newLeader types.NodeID)) {
	m.onLeaderChange = f
}

func (m *Manager) score(n types.NodeID) float64 { return m.reps.Score(n) }

// AddNode joins the best-fit existing shard (nearest center within
// radius), or creates a new shard if none qualifies (§4.C add_node).
// A join that pushes the shard over max_shard_size triggers a split.
func (m *Manager) AddNode(node types.NodeID, loc types.GeoPoint) types.ShardID {
	if existing, ok := m.homeOf[node]; ok {
		return existing
	}
	target := m.findHome(loc)
	if target == nil {
		target = m.createShard(loc)
	}
	target.Members[node] = loc
	target.LastUpdate++
	m.homeOf[node] = target.ID
	if m.metrics != nil {
		m.metrics.Members.WithLabelValues(shardLabel(target.ID)).Set(float64(len(target.Members)))
	}
	if target.Leader == "" {
		m.electLeader(target)
	}
	if len(target.Members) > m.cfg.MaxShardSize {
		m.split(target)
	}
	return target.ID
}

func (m *Manager) findHome(loc types.GeoPoint) *Shard {
	var best *Shard
	bestDist := -1.0
	for _, s := range m.shards {
		if !geo.Within(loc, s.Center, s.Radius) {
			continue
		}
		d := geo.Distance(loc, s.Center)
		if best == nil || d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}

func (m *Manager) createShard(loc types.GeoPoint) *Shard {
	id := m.nextID
	m.nextID++
	s := &Shard{
		ID:      id,
		Level:   types.LevelRegional,
		Center:  loc,
		Radius:  m.cfg.DefaultRadius,
		Members: make(map[types.NodeID]types.GeoPoint),
	}
	s.selector = vrf.NewSelector(id, m.onLog)
	m.shards[id] = s
	if m.metrics != nil {
		m.metrics.Count.Set(float64(len(m.shards)))
	}
	m.onLog("created shard")
	return s
}

// RemoveNode leaves a node's home shard, triggering a merge if the
// shard falls below min_shard_size and re-electing the leader if the
// departing node held it (§4.C remove_node).
func (m *Manager) RemoveNode(node types.NodeID) bool {
	id, ok := m.homeOf[node]
	if !ok {
		return false
	}
	s := m.shards[id]
	delete(s.Members, node)
	delete(m.homeOf, node)
	s.LastUpdate++
	wasLeader := s.Leader == node
	if m.metrics != nil {
		m.metrics.Members.WithLabelValues(shardLabel(id)).Set(float64(len(s.Members)))
	}
	if len(s.Members) < m.cfg.MinShardSize {
		m.merge(s)
		if _, kept := m.shards[id]; !kept {
			return true
		}
	}
	if wasLeader {
		m.electLeader(s)
	}
	return true
}

// UpdateLocation re-homes node if new_location no longer falls within
// its current shard's radius; a no-op otherwise (§4.C update_location).
func (m *Manager) UpdateLocation(node types.NodeID, loc types.GeoPoint) types.ShardID {
	id, ok := m.homeOf[node]
	if !ok {
		return m.AddNode(node, loc)
	}
	s := m.shards[id]
	if geo.Within(loc, s.Center, s.Radius) {
		s.Members[node] = loc
		s.LastUpdate++
		return id
	}
	m.RemoveNode(node)
	return m.AddNode(node, loc)
}

// ElectLeader chooses by reputation with node-id tie-break (§4.C
// elect_leader). A change of leader fires onLeaderChange so the
// harness can cancel the outgoing leader's in-flight round.
func (m *Manager) electLeader(s *Shard) {
	old := s.Leader
	s.Leader = election.ElectLeader(s.memberIDs(), m.score)
	if old != "" && old != s.Leader && m.onLeaderChange != nil {
		m.onLeaderChange(s.ID, old, s.Leader)
	}
}

// ElectConsensusGroup builds the trusted-tier candidate list for s,
// derives the sortition seed, and runs the VRF Selector (§4.C
// elect_consensus_group).
func (m *Manager) ElectConsensusGroup(shardID types.ShardID, epoch types.Epoch, latestBlockHash string) vrf.Committee {
	s := m.shards[shardID]
	if s == nil {
		return vrf.Committee{}
	}
	var candidates, rsus []types.NodeID
	for _, n := range election.RankByReputation(s.memberIDs(), m.score) {
		if m.reps.Tier(n) < types.TierTrusted {
			continue
		}
		candidates = append(candidates, n)
		if m.isRSU != nil && m.isRSU(n) {
			rsus = append(rsus, n)
		}
	}
	seed := uint64(0)
	if m.seedFor != nil {
		seed = m.seedFor(shardID, epoch)
	}
	if latestBlockHash != "" {
		seed = vrf.ScoreNode(types.NodeID(latestBlockHash), seed)
	}
	committee := s.selector.Elect(candidates, rsus, m.cfg.CommitteeSize, m.cfg.RedundantSize, seed, epoch)
	if !committee.RSUFloorMet() {
		m.onLog("committee elected without meeting RSU floor")
	}
	return committee
}

// RoleOf reports n's role within shardID's currently elected committee.
func (m *Manager) RoleOf(shardID types.ShardID, n types.NodeID) types.NodeRole {
	s := m.shards[shardID]
	if s == nil {
		return types.RoleOrdinary
	}
	return s.selector.RoleOf(n)
}

// ReportCommit advances the epoch counter by committed block count and
// re-elects every shard's committee whenever the epoch boundary is
// crossed (§4.C "Epoch boundary").
func (m *Manager) ReportCommit(epochLength int, latestBlockHash string) {
	m.committedCount++
	if epochLength <= 0 {
		epochLength = m.cfg.EpochLength
	}
	e := types.Epoch(m.committedCount / epochLength)
	if e <= m.lastEpoch {
		return
	}
	m.lastEpoch = e
	for id := range m.shards {
		m.ElectConsensusGroup(id, e, latestBlockHash)
	}
}

// Split implements §4.C's split rule: compute the member centroid,
// create a new shard there, move every member closer to the new
// center, re-elect both leaders, and retry up to 3 times if the
// post-split radius invariant does not hold.
func (m *Manager) split(s *Shard) {
	for attempt := 0; attempt < 3; attempt++ {
		locs := make([]types.GeoPoint, 0, len(s.Members))
		for _, l := range s.Members {
			locs = append(locs, l)
		}
		centroid := geo.Centroid(locs)
		newShard := m.createShard(centroid)
		for node, loc := range s.Members {
			if geo.Distance(loc, centroid) < geo.Distance(loc, s.Center) {
				newShard.Members[node] = loc
				delete(s.Members, node)
				m.homeOf[node] = newShard.ID
			}
		}
		m.electLeader(s)
		m.electLeader(newShard)
		if m.metrics != nil {
			m.metrics.Splits.Inc()
			m.metrics.Count.Set(float64(len(m.shards)))
			m.metrics.Members.WithLabelValues(shardLabel(s.ID)).Set(float64(len(s.Members)))
			m.metrics.Members.WithLabelValues(shardLabel(newShard.ID)).Set(float64(len(newShard.Members)))
		}
		if m.withinRadius(s) && m.withinRadius(newShard) {
			return
		}
		s = newShard // retry the split on the new shard if still too spread out
	}
	m.onLog("split did not converge within 3 iterations, proceeding with degraded state")
}

func (m *Manager) withinRadius(s *Shard) bool {
	for _, loc := range s.Members {
		if !geo.Within(loc, s.Center, s.Radius) {
			return false
		}
	}
	return true
}

// Merge implements §4.C's merge rule: transfer all members of s into
// the nearest other shard (by center distance) and delete s, unless
// that would overflow the target's max size, in which case the
// undersized state is accepted temporarily.
func (m *Manager) merge(s *Shard) {
	var target *Shard
	bestDist := -1.0
	for id, other := range m.shards {
		if id == s.ID {
			continue
		}
		d := geo.Distance(s.Center, other.Center)
		if target == nil || d < bestDist {
			target = other
			bestDist = d
		}
	}
	if target == nil {
		return
	}
	if len(target.Members)+len(s.Members) > m.cfg.MaxShardSize {
		m.onLog("merge target would exceed max_shard_size, accepting undersized shard")
		if len(s.Members) > 0 {
			m.electLeader(s)
		}
		return
	}
	for node, loc := range s.Members {
		target.Members[node] = loc
		m.homeOf[node] = target.ID
	}
	delete(m.shards, s.ID)
	m.electLeader(target)
	if m.metrics != nil {
		m.metrics.Merges.Inc()
		m.metrics.Count.Set(float64(len(m.shards)))
		m.metrics.Members.WithLabelValues(shardLabel(target.ID)).Set(float64(len(target.Members)))
	}
}

// Rebalance is the periodic maintenance sweep (§4.C rebalance):
// applies split/merge across every shard currently out of bounds.
func (m *Manager) Rebalance() {
	for _, s := range snapshot(m.shards) {
		switch {
		case len(s.Members) > m.cfg.MaxShardSize:
			m.split(s)
		case len(s.Members) < m.cfg.MinShardSize && len(s.Members) > 0:
			m.merge(s)
		}
	}
}

func snapshot(shards map[types.ShardID]*Shard) []*Shard {
	out := make([]*Shard, 0, len(shards))
	for _, s := range shards {
		out = append(out, s)
	}
	return out
}

func (m *Manager) Get(id types.ShardID) (*Shard, bool) {
	s, ok := m.shards[id]
	return s, ok
}

// PrimarySize returns shardID's currently elected primary committee
// size (§4.D's quorum N), falling back to full shard membership before
// any committee has been elected.
func (m *Manager) PrimarySize(shardID types.ShardID) int {
	s, ok := m.shards[shardID]
	if !ok {
		return 0
	}
	if n := len(s.selector.CurrentCommittee().Primary); n > 0 {
		return n
	}
	return len(s.Members)
}

func (m *Manager) HomeOf(node types.NodeID) (types.ShardID, bool) {
	id, ok := m.homeOf[node]
	return id, ok
}

func (m *Manager) ShardCount() int { return len(m.shards) }

func shardLabel(id types.ShardID) string {
	return strconv.Itoa(int(id))
}
