// Package sync implements the Lightweight Sync component (§4.E): a
// header-chain tracker for non-committee nodes, with on-demand full
// block download and Merkle-proof transaction verification. Grounded
// on original_source/src/blockchain/LightweightSync.h's header/full-block
// split design.
package sync

import (
	"github.com/google/uuid"

	"tribft/blockchain"
	"tribft/types"
)

// RequestFunc is the injected capability for requesting a full block
// from a peer (§6's Transport collaborator); it never blocks.
type RequestFunc func(requestID string, height types.BlockHeight)

// StorageStats mirrors original_source's StorageStats struct: a
// concrete, auditable accounting of the header/full-block tradeoff the
// component exists to make.
type StorageStats struct {
	HeaderCount      int
	FullBlockCount   int
	HeaderBytes      int
	FullBlockBytes   int
	CompressionRatio float64
}

const approxHeaderBytes = 100
const approxTxBytes = 96

// Sync is one node's lightweight sync state.
type Sync struct {
	role NodeSyncRole

	headers      map[types.BlockHeight]blockchain.Header
	latestHeight types.BlockHeight

	fullBlocks map[types.BlockHeight]*blockchain.Block

	pendingRequests map[string]types.BlockHeight

	onLog     func(string)
	onRequest RequestFunc
}

// NodeSyncRole distinguishes nodes that only ever need headers from
// ones permitted to hold full blocks (committee members, RSUs).
type NodeSyncRole byte

const (
	RoleHeaderOnly NodeSyncRole = iota
	RoleFullBlockCapable
)

func New(role NodeSyncRole, onLog func(string), onRequest RequestFunc) *Sync {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &Sync{
		role:            role,
		headers:         make(map[types.BlockHeight]blockchain.Header),
		fullBlocks:      make(map[types.BlockHeight]*blockchain.Block),
		pendingRequests: make(map[string]types.BlockHeight),
		onLog:           onLog,
		onRequest:       onRequest,
	}
}

// SyncHeader chains header onto the known chain: previous_hash must
// match known[height-1].block_hash and height must be exactly one past
// it. Genesis (height 1, nothing known yet) bypasses chaining.
func (s *Sync) SyncHeader(header blockchain.Header) bool {
	if len(s.headers) == 0 {
		if header.Height != 1 {
			return false
		}
		s.headers[header.Height] = header
		s.latestHeight = header.Height
		return true
	}
	prev, ok := s.headers[header.Height-1]
	if !ok || header.PreviousHash != prev.BlockHash || header.Height != prev.Height+1 {
		s.onLog("rejected out-of-chain header")
		return false
	}
	s.headers[header.Height] = header
	if header.Height > s.latestHeight {
		s.latestHeight = header.Height
	}
	return true
}

func (s *Sync) GetHeader(h types.BlockHeight) (blockchain.Header, bool) {
	hd, ok := s.headers[h]
	return hd, ok
}

func (s *Sync) LatestHeight() types.BlockHeight { return s.latestHeight }

func (s *Sync) HasHeader(h types.BlockHeight) bool {
	_, ok := s.headers[h]
	return ok
}

// RequestFullBlock issues a request for height's full block and
// returns the request id.
func (s *Sync) RequestFullBlock(height types.BlockHeight) string {
	id := uuid.New().String()
	s.pendingRequests[id] = height
	if s.onRequest != nil {
		s.onRequest(id, height)
	}
	return id
}

// ReceiveFullBlock verifies the block's hash, Merkle root and
// transaction count against the stored header before storing it.
func (s *Sync) ReceiveFullBlock(b *blockchain.Block) bool {
	hd, ok := s.headers[b.Height]
	if !ok {
		return false
	}
	if b.BlockHash != hd.BlockHash {
		return false
	}
	if blockchain.MerkleRoot(b.Transactions) != hd.MerkleRoot {
		return false
	}
	if len(b.Transactions) != hd.TxCount {
		return false
	}
	s.fullBlocks[b.Height] = b
	return true
}

func (s *Sync) HasFullBlock(h types.BlockHeight) bool {
	_, ok := s.fullBlocks[h]
	return ok
}

func (s *Sync) GetFullBlock(h types.BlockHeight) (*blockchain.Block, bool) {
	b, ok := s.fullBlocks[h]
	return b, ok
}

// VerifyTransaction recomputes the Merkle root from proof against the
// stored header for height and reports whether it matches (§4.E).
func (s *Sync) VerifyTransaction(height types.BlockHeight, txHash string, proof blockchain.MerkleProof) bool {
	hd, ok := s.headers[height]
	if !ok {
		return false
	}
	return blockchain.VerifyProof(txHash, proof, hd.MerkleRoot)
}

// Cleanup drops all header/full-block state older than the most
// recent keepCount blocks (§5 resource bounds).
func (s *Sync) Cleanup(keepCount int) {
	if keepCount <= 0 || types.BlockHeight(keepCount) >= s.latestHeight {
		return
	}
	cutoff := s.latestHeight - types.BlockHeight(keepCount)
	for h := range s.headers {
		if h <= cutoff {
			delete(s.headers, h)
		}
	}
	for h := range s.fullBlocks {
		if h <= cutoff {
			delete(s.fullBlocks, h)
		}
	}
}

func (s *Sync) StorageStats() StorageStats {
	headerBytes := len(s.headers) * approxHeaderBytes
	fullBytes := 0
	for _, b := range s.fullBlocks {
		fullBytes += approxHeaderBytes + len(b.Transactions)*approxTxBytes
	}
	ratio := 0.0
	if fullBytes > 0 {
		ratio = float64(headerBytes) / float64(fullBytes)
	}
	return StorageStats{
		HeaderCount:      len(s.headers),
		FullBlockCount:   len(s.fullBlocks),
		HeaderBytes:      headerBytes,
		FullBlockBytes:   fullBytes,
		CompressionRatio: ratio,
	}
}
