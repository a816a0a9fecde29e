// Package vrf implements the VRF Committee Selector (§4.B): a
// deterministic, hash-based sortition over a shard's trusted candidate
// list, subject to an RSU representation floor.
//
// original_source/src/consensus/VRFSelector.cc deliberately stubs out
// its own electConsensusGroup/calculateVRF ("Core implementation
// hidden"), so spec.md's 6-step algorithm is the only source of truth
// for this component — there is nothing to cross-check against.
package vrf

import (
	"encoding/binary"

	"golang.org/x/exp/slices"

	"tribft/crypto"
	"tribft/types"
)

type scored struct {
	node  types.NodeID
	score uint64
}

// Committee is the elected consensus group for a shard epoch (§3
// "Consensus committee").
type Committee struct {
	Primary   []types.NodeID
	Redundant []types.NodeID
	RSUCount  int
	VehicleCount int
	Epoch     types.Epoch
	Underfilled bool // true if |candidates| < G, or if too few RSUs were available to meet the RSU floor
}

// RSUFloorMet reports whether the primary set satisfies the RSU
// representation floor, rsu_count >= floor(|primary|/3) (§3).
func (c Committee) RSUFloorMet() bool {
	return c.RSUCount >= len(c.Primary)/3
}

func (c Committee) IsPrimary(n types.NodeID) bool {
	for _, p := range c.Primary {
		if p == n {
			return true
		}
	}
	return false
}

func (c Committee) IsRedundant(n types.NodeID) bool {
	for _, r := range c.Redundant {
		if r == n {
			return true
		}
	}
	return false
}

func (c Committee) RoleOf(n types.NodeID, isRSU func(types.NodeID) bool) types.NodeRole {
	switch {
	case isRSU != nil && isRSU(n) && c.IsPrimary(n):
		return types.RoleRSU
	case c.IsPrimary(n):
		return types.RolePrimary
	case c.IsRedundant(n):
		return types.RoleRedundant
	default:
		return types.RoleOrdinary
	}
}

// ScoreNode computes s(n) = H(n || seed), the stable 64-bit hash used
// to rank candidates (§4.B step 1).
func ScoreNode(node types.NodeID, seed uint64) uint64 {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seed)
	h := crypto.Keccak256([]byte(node), buf)
	return binary.BigEndian.Uint64(h[:8])
}

// Selector is the VRF Committee Selector for a single shard.
type Selector struct {
	shardID         types.ShardID
	current         Committee
	roles           map[types.NodeID]types.NodeRole
	lastElectedEpoch types.Epoch
	onLog           func(string)
}

func NewSelector(shardID types.ShardID, onLog func(string)) *Selector {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &Selector{shardID: shardID, roles: make(map[types.NodeID]types.NodeRole), onLog: onLog}
}

// Elect runs the 6-step algorithm of §4.B.
func (s *Selector) Elect(candidates []types.NodeID, rsus []types.NodeID, g, k int, seed uint64, epoch types.Epoch) Committee {
	isRSU := make(map[types.NodeID]bool, len(rsus))
	for _, r := range rsus {
		isRSU[r] = true
	}

	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{c, ScoreNode(c, seed)}
	}
	// Step 1-2: sort by score descending, ties by node id ascending.
	slices.SortFunc(ranked, func(a, b scored) bool {
		if a.score != b.score {
			return a.score > b.score
		}
		return a.node < b.node
	})

	underfilled := len(ranked) < g
	gPrime := g
	if underfilled {
		gPrime = len(ranked)
	}

	// Step 3: provisional primaries.
	primary := make([]types.NodeID, gPrime)
	for i := 0; i < gPrime; i++ {
		primary[i] = ranked[i].node
	}
	rest := ranked[gPrime:]

	// Step 4: enforce RSU floor by promotion/demotion.
	floor := gPrime / 3
	rsuInPrimary := countRSU(primary, isRSU)
	for rsuInPrimary < floor {
		promIdx := findFirst(rest, func(n types.NodeID) bool { return isRSU[n] })
		if promIdx < 0 {
			underfilled = true
			break
		}
		demoteIdx := findLastNonRSU(primary, isRSU)
		if demoteIdx < 0 {
			break
		}
		demoted := primary[demoteIdx]
		primary[demoteIdx] = rest[promIdx].node
		rest[promIdx].node = demoted
		rsuInPrimary++
	}

	// Step 5: next K as redundant.
	kPrime := k
	if kPrime > len(rest) {
		kPrime = len(rest)
	}
	redundant := make([]types.NodeID, kPrime)
	for i := 0; i < kPrime; i++ {
		redundant[i] = rest[i].node
	}

	vehicleCount := 0
	for _, p := range primary {
		if !isRSU[p] {
			vehicleCount++
		}
	}

	committee := Committee{
		Primary:      primary,
		Redundant:    redundant,
		RSUCount:     countRSU(primary, isRSU),
		VehicleCount: vehicleCount,
		Epoch:        epoch,
		Underfilled:  underfilled,
	}

	s.current = committee
	s.lastElectedEpoch = epoch
	s.roles = make(map[types.NodeID]types.NodeRole, len(primary)+len(redundant))
	for _, p := range primary {
		if isRSU[p] {
			s.roles[p] = types.RoleRSU
		} else {
			s.roles[p] = types.RolePrimary
		}
	}
	for _, r := range redundant {
		s.roles[r] = types.RoleRedundant
	}

	s.onLog("elected committee for shard")
	return committee
}

func countRSU(nodes []types.NodeID, isRSU map[types.NodeID]bool) int {
	n := 0
	for _, node := range nodes {
		if isRSU[node] {
			n++
		}
	}
	return n
}

func findFirst(nodes []scored, pred func(types.NodeID) bool) int {
	for i, n := range nodes {
		if pred(n.node) {
			return i
		}
	}
	return -1
}

func findLastNonRSU(primary []types.NodeID, isRSU map[types.NodeID]bool) int {
	for i := len(primary) - 1; i >= 0; i-- {
		if !isRSU[primary[i]] {
			return i
		}
	}
	return -1
}

func (s *Selector) IsPrimary(n types.NodeID) bool   { return s.current.IsPrimary(n) }
func (s *Selector) IsRedundant(n types.NodeID) bool { return s.current.IsRedundant(n) }
func (s *Selector) RoleOf(n types.NodeID) types.NodeRole {
	if r, ok := s.roles[n]; ok {
		return r
	}
	return types.RoleOrdinary
}
func (s *Selector) CurrentCommittee() Committee { return s.current }

// NeedsReelection is true iff currentEpoch > last_elected_epoch (§4.B).
func (s *Selector) NeedsReelection(currentEpoch types.Epoch) bool {
	return currentEpoch > s.lastElectedEpoch
}
