// Package election picks a shard's leader by reputation, replacing
// the teacher's election.Static fixed-master assignment (§4.C
// elect_leader: "chooses by reputation; tie-break by node id").
package election

import (
	"golang.org/x/exp/slices"

	"tribft/types"
)

// ScoreFunc returns a node's current reputation score (injected —
// election never holds its own copy of reputation state, per §9's
// capability-injection design note).
type ScoreFunc func(types.NodeID) float64

// ElectLeader picks the highest-reputation member of members, with
// ties broken by ascending node id for determinism. Returns "" if
// members is empty.
func ElectLeader(members []types.NodeID, score ScoreFunc) types.NodeID {
	if len(members) == 0 {
		return ""
	}
	best := members[0]
	bestScore := score(best)
	for _, m := range members[1:] {
		s := score(m)
		if s > bestScore || (s == bestScore && m < best) {
			best = m
			bestScore = s
		}
	}
	return best
}

// RankByReputation returns members sorted by descending reputation,
// ties broken by ascending node id — used by the shard manager to
// build a candidate list before handing it to the VRF selector.
func RankByReputation(members []types.NodeID, score ScoreFunc) []types.NodeID {
	out := append([]types.NodeID{}, members...)
	slices.SortFunc(out, func(a, b types.NodeID) bool {
		sa, sb := score(a), score(b)
		if sa != sb {
			return sa > sb
		}
		return a < b
	})
	return out
}
