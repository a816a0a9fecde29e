// Package types holds the small value types shared across every TriBFT
// component: node identity, shard/height/view/epoch counters and the
// geographic coordinate used by the shard manager.
package types

import "fmt"

// NodeID is an opaque node identifier. The specification treats
// identity as a plain string; no cryptographic meaning is attached to it.
type NodeID string

type IDs []NodeID

// ShardID is a small non-negative integer; NoShard (-1) means "none".
type ShardID int

const NoShard ShardID = -1

// BlockHeight and View are monotonically non-decreasing counters.
type BlockHeight uint64

type View uint64

// Epoch is a fixed-length window, measured in committed blocks, between
// committee re-elections.
type Epoch uint64

// GeoPoint is a planar coordinate (latitude, longitude in degrees).
// Distances are computed as Euclidean, matching the paper's assumption
// that a region is small enough to treat as flat.
type GeoPoint struct {
	Lat float64
	Lon float64
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.5f,%.5f)", p.Lat, p.Lon)
}

// Phase is a HotStuff consensus phase.
type Phase byte

const (
	PhasePrepare Phase = iota
	PhasePreCommit
	PhaseCommit
)

func (p Phase) String() string {
	switch p {
	case PhasePrepare:
		return "PREPARE"
	case PhasePreCommit:
		return "PRE_COMMIT"
	case PhaseCommit:
		return "COMMIT"
	default:
		return "UNKNOWN_PHASE"
	}
}

// Next returns the phase that legally follows p, and whether p has a
// successor (COMMIT has none; reaching it triggers a block commit and a
// return to IDLE at the engine level, not a phase of its own).
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhasePrepare:
		return PhasePreCommit, true
	case PhasePreCommit:
		return PhaseCommit, true
	default:
		return p, false
	}
}

// NodeRole is the consensus role a node holds within its shard.
type NodeRole byte

const (
	RoleOrdinary NodeRole = iota
	RolePrimary
	RoleRedundant
	RoleRSU
)

func (r NodeRole) String() string {
	switch r {
	case RoleOrdinary:
		return "ORDINARY"
	case RolePrimary:
		return "PRIMARY"
	case RoleRedundant:
		return "REDUNDANT"
	case RoleRSU:
		return "RSU"
	default:
		return "UNKNOWN_ROLE"
	}
}

// TrustTier classifies a node by its final reputation score.
type TrustTier byte

const (
	TierCandidate TrustTier = iota
	TierStandard
	TierTrusted
)

func (t TrustTier) String() string {
	switch t {
	case TierCandidate:
		return "CANDIDATE"
	case TierStandard:
		return "STANDARD"
	case TierTrusted:
		return "TRUSTED"
	default:
		return "UNKNOWN_TIER"
	}
}

// ShardLevel is the geographic granularity a shard clusters at.
type ShardLevel byte

const (
	LevelRegional ShardLevel = iota
	LevelCity
	LevelGlobal
)

func (l ShardLevel) String() string {
	switch l {
	case LevelRegional:
		return "REGIONAL"
	case LevelCity:
		return "CITY"
	case LevelGlobal:
		return "GLOBAL"
	default:
		return "UNKNOWN_LEVEL"
	}
}
