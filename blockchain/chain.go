package blockchain

import (
	"tribft/types"
)

// Chain is the per-shard linear, height-indexed block store. Heights
// are gap-free by construction (§8 invariant 5): Append refuses any
// block that does not extend the current head.
type Chain struct {
	blocks       map[types.BlockHeight]*Block
	latestHeight types.BlockHeight
	hasGenesis   bool
}

func NewChain() *Chain {
	return &Chain{blocks: make(map[types.BlockHeight]*Block)}
}

// Append stores b if it legally extends the chain: height one past the
// current head and previous-hash matching the current head's hash.
// The genesis block (height 1 with no prior block) is always accepted.
func (c *Chain) Append(b *Block) bool {
	if !c.hasGenesis {
		if b.Height != 1 {
			return false
		}
		c.blocks[b.Height] = b
		c.latestHeight = b.Height
		c.hasGenesis = true
		return true
	}
	head := c.blocks[c.latestHeight]
	if b.Height != head.Height+1 || b.PreviousHash != head.BlockHash {
		return false
	}
	c.blocks[b.Height] = b
	c.latestHeight = b.Height
	return true
}

func (c *Chain) Get(h types.BlockHeight) (*Block, bool) {
	b, ok := c.blocks[h]
	return b, ok
}

func (c *Chain) Latest() (*Block, bool) {
	return c.Get(c.latestHeight)
}

func (c *Chain) LatestHeight() types.BlockHeight {
	return c.latestHeight
}

func (c *Chain) LatestHash() string {
	if b, ok := c.Latest(); ok {
		return b.BlockHash
	}
	return ""
}
