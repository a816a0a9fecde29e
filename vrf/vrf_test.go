package vrf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribft/types"
)

func candidates() []types.NodeID {
	return []types.NodeID{"n1", "n2", "n3", "n4"}
}

func TestElectDeterministic(t *testing.T) {
	s1 := NewSelector(0, nil)
	s2 := NewSelector(0, nil)
	c1 := s1.Elect(candidates(), []types.NodeID{"n1"}, 2, 1, 42, 1)
	c2 := s2.Elect(candidates(), []types.NodeID{"n1"}, 2, 1, 42, 1)
	assert.Equal(t, c1.Primary, c2.Primary)
	assert.Equal(t, c1.Redundant, c2.Redundant)
}

func TestElectDifferentSeedDiffers(t *testing.T) {
	s1 := NewSelector(0, nil)
	s2 := NewSelector(0, nil)
	c1 := s1.Elect(candidates(), []types.NodeID{"n1"}, 2, 1, 42, 1)
	c2 := s2.Elect(candidates(), []types.NodeID{"n1"}, 2, 1, 43, 1)
	assert.NotEqual(t, c1.Primary, c2.Primary, "a different seed should plausibly change the outcome")
}

func TestUnderfillFlag(t *testing.T) {
	s := NewSelector(0, nil)
	c := s.Elect([]types.NodeID{"n1", "n2"}, nil, 5, 1, 1, 1)
	assert.True(t, c.Underfilled)
	assert.Len(t, c.Primary, 2)
}

func TestRSUFloorEnforced(t *testing.T) {
	s := NewSelector(0, nil)
	vehicles := make([]types.NodeID, 20)
	for i := range vehicles {
		vehicles[i] = types.NodeID(rune('a' + i))
	}
	cands := append(vehicles, "rsu1")
	c := s.Elect(cands, []types.NodeID{"rsu1"}, 9, 2, 5, 1)
	require.Contains(t, c.Primary, types.NodeID("rsu1"), "the only RSU candidate must be promoted into the primary set")
	assert.True(t, c.Underfilled, "with only one RSU candidate the floor of 3 cannot be met")
}

func TestCommitteeRoleOf(t *testing.T) {
	s := NewSelector(0, nil)
	c := s.Elect(candidates(), nil, 2, 1, 1, 1)
	primary := c.Primary[0]
	assert.Equal(t, types.RolePrimary, c.RoleOf(primary, func(types.NodeID) bool { return false }))
	assert.Equal(t, types.RoleOrdinary, c.RoleOf("unknown-node", func(types.NodeID) bool { return false }))
}

func TestNeedsReelection(t *testing.T) {
	s := NewSelector(0, nil)
	s.Elect(candidates(), nil, 2, 1, 1, types.Epoch(3))
	assert.False(t, s.NeedsReelection(3))
	assert.True(t, s.NeedsReelection(4))
}
