// Command main runs a single-process discrete-event simulation of a
// TriBFT deployment: a configurable number of vehicle/RSU nodes
// joining one or more regional shards, proposing and committing
// blocks over simulated clock ticks. Grounded on the teacher's
// main.go flag-driven simulation entry point, reshaped from its
// multi-process TCP/coordinator/gateway topology (§1 Non-goals
// excludes on-wire transport) down to the in-process
// broadcast/send_to capability §5 specifies.
package main

import (
	"flag"
	"math/rand"
	"time"

	"tribft/blockchain"
	"tribft/byzantine"
	"tribft/config"
	"tribft/crypto"
	"tribft/dlog"
	"tribft/message"
	"tribft/metrics"
	"tribft/node"
	"tribft/reputation"
	"tribft/shard"
	"tribft/types"
	"tribft/utils"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	configPath = flag.String("config", "", "path to a YAML config file (defaults applied if absent)")
	numNodes   = flag.Int("nodes", 12, "number of simulated nodes")
	numRSUs    = flag.Int("rsus", 2, "number of simulated nodes flagged as RSUs")
	ticks      = flag.Int("ticks", 200, "number of simulated clock ticks to run")
)

// memTransport fans every broadcast out to every node's inbox
// directly, in-process — the §5 "single-process discrete-event loop"
// model, not a real network.
type memTransport struct {
	nodes map[types.NodeID]*node.Node
}

func (t *memTransport) Broadcast(payload interface{}) {
	for _, n := range t.nodes {
		deliver(n, payload)
	}
}

func (t *memTransport) SendTo(id types.NodeID, payload interface{}) {
	if n, ok := t.nodes[id]; ok {
		deliver(n, payload)
	}
}

func (t *memTransport) RequestFullBlock(requester types.NodeID, requestID string, height types.BlockHeight) {
	requesting, ok := t.nodes[requester]
	if !ok {
		return
	}
	for id, n := range t.nodes {
		if id == requester {
			continue
		}
		if b, ok := n.Sync().GetFullBlock(height); ok {
			requesting.Sync().ReceiveFullBlock(b)
			return
		}
	}
}

func deliver(n *node.Node, payload interface{}) {
	switch m := payload.(type) {
	case *message.Proposal:
		n.ReceiveProposal(m)
	case *message.Vote:
		n.ReceiveVote(m)
	case *message.PhaseAdvance:
		n.ReceivePhaseAdvance(m)
	case blockchain.Header:
		n.Sync().SyncHeader(m)
	case message.ReportByzantine:
		n.ReceiveReportByzantine(m)
	}
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err == nil {
			cfg = loaded
		}
	}

	reg := prometheus.NewRegistry()
	consensusMetrics := metrics.NewConsensusCollector(reg)
	reputationMetrics := metrics.NewReputationCollector(reg)
	shardMetrics := metrics.NewShardCollector(reg)

	logger := dlog.New("simulation", "all")
	reps := reputation.NewManager(reputation.Config{InitialScore: cfg.InitialReputation, DecayRate: cfg.ReputationDecayRate}, logger.Component("reputation"), reputationMetrics)
	byz := byzantine.NewTracker(2)

	rsuSet := make(map[types.NodeID]bool)
	locations := make(map[types.NodeID]types.GeoPoint)
	for i := 0; i < *numNodes; i++ {
		id := utils.NewNodeID(i)
		locations[id] = types.GeoPoint{Lat: rand.Float64() * 10, Lon: rand.Float64() * 10}
		if i < *numRSUs {
			rsuSet[id] = true
		}
	}
	isRSU := func(n types.NodeID) bool { return rsuSet[n] }
	seedFor := func(shardID types.ShardID, epoch types.Epoch) uint64 {
		h := crypto.Keccak256([]byte(shardLabelFor(shardID)), []byte(epochLabelFor(epoch)))
		return uint64(h[0])<<56 | uint64(h[1])<<48 | uint64(h[2])<<40 | uint64(h[3])<<32
	}

	shardCfg := shard.DefaultConfig()
	shardCfg.MinShardSize = cfg.MinShardSize
	shardCfg.MaxShardSize = cfg.MaxShardSize
	shardCfg.CommitteeSize = cfg.CommitteeSize
	shardCfg.RedundantSize = cfg.RedundantSize
	shardCfg.EpochLength = cfg.EpochLength
	shardCfg.DefaultRadius = cfg.ShardRadius
	shardMgr := shard.New(shardCfg, reps, isRSU, seedFor, logger.Component("shard"), shardMetrics)

	for id, loc := range locations {
		reps.Register(id)
		shardMgr.AddNode(id, loc)
	}

	transport := &memTransport{nodes: make(map[types.NodeID]*node.Node)}
	chains := make(map[types.ShardID]*blockchain.Chain)

	for id := range locations {
		shardID, _ := shardMgr.HomeOf(id)
		chain, ok := chains[shardID]
		if !ok {
			chain = blockchain.NewChain()
			chains[shardID] = chain
		}
		collab := node.Collaborators{
			Transport:  transport,
			Reputation: reps,
			Byzantine:  byz,
			CommitteeSize: func() int {
				if _, ok := shardMgr.Get(shardID); !ok {
					return 1
				}
				return shardMgr.PrimarySize(shardID)
			},
		}
		n := node.New(id, shardID, false, cfg.ConsensusTimeout, cfg.BatchSize*4, chain, collab, consensusMetrics, cfg.NatsAddress, cfg.BlockInterval)
		transport.nodes[id] = n
	}

	shardMgr.OnLeaderChange(func(shardID types.ShardID, oldLeader, newLeader types.NodeID) {
		n, ok := transport.nodes[oldLeader]
		if !ok {
			return
		}
		n.Pool().Requeue(n.Engine().CancelIfLeader(oldLeader))
	})

	shardMgr.ElectConsensusGroup(0, 0, "")

	for tick := 0; tick < *ticks; tick++ {
		for id, n := range transport.nodes {
			home, _ := shardMgr.HomeOf(id)
			s, ok := shardMgr.Get(home)
			isLeader := ok && s.Leader == id
			n.ProposeIfLeader(isLeader, cfg.BatchSize)
			n.Tick()
		}
		if tick%cfg.EpochLength == 0 {
			shardMgr.Rebalance()
			reps.CleanupExpiredVerifications(time.Now(), cfg.ConsensusTimeout*10)
		}
		time.Sleep(time.Millisecond)
	}
}

func shardLabelFor(s types.ShardID) string {
	return crypto.MakeID(s)
}

func epochLabelFor(e types.Epoch) string {
	return crypto.MakeID(e)
}
