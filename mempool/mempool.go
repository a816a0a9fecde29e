// Package mempool is the transaction pool the leader drains when
// proposing a block. Grounded on the teacher's mempool.Producer
// wrapper shape; the underlying pool type was not present in the
// retrieved pack, so it is authored fresh with the bound/eviction
// rule §5 specifies: capped at max_tx_pool_size, oldest-wins eviction.
package mempool

import (
	"go.uber.org/atomic"

	"tribft/message"
)

// Pool is a bounded FIFO of pending transactions.
type Pool struct {
	capacity      int
	order         []*message.Transaction
	seen          map[string]bool
	totalReceived atomic.Int64
}

func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Pool{
		capacity: capacity,
		seen:     make(map[string]bool),
	}
}

// Add appends a new transaction; if the pool is at capacity, the
// oldest pending transaction is evicted first (§5 "oldest-wins
// eviction"). Duplicate ids (by transaction id) are dropped silently.
func (p *Pool) Add(tx *message.Transaction) bool {
	if !tx.Valid() || p.seen[tx.ID] {
		return false
	}
	if len(p.order) >= p.capacity {
		evicted := p.order[0]
		p.order = p.order[1:]
		delete(p.seen, evicted.ID)
	}
	p.order = append(p.order, tx)
	p.seen[tx.ID] = true
	p.totalReceived.Inc()
	return true
}

// Take removes and returns up to n pending transactions, oldest first
// — the batch a leader proposes (§6 batch_size).
func (p *Pool) Take(n int) []*message.Transaction {
	if n > len(p.order) {
		n = len(p.order)
	}
	batch := p.order[:n]
	p.order = p.order[n:]
	for _, tx := range batch {
		delete(p.seen, tx.ID)
	}
	return batch
}

// Requeue returns transactions to the front of the pool, used when a
// proposal they were batched into is abandoned by timeout (§4.D).
func (p *Pool) Requeue(txs []*message.Transaction) {
	for _, tx := range txs {
		if p.seen[tx.ID] {
			continue
		}
		p.seen[tx.ID] = true
	}
	p.order = append(txs, p.order...)
	if len(p.order) > p.capacity {
		overflow := len(p.order) - p.capacity
		for _, evicted := range p.order[:overflow] {
			delete(p.seen, evicted.ID)
		}
		p.order = p.order[overflow:]
	}
}

func (p *Pool) Size() int { return len(p.order) }

func (p *Pool) TotalReceived() int64 { return p.totalReceived.Load() }
