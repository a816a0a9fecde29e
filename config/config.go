// Package config loads the initialization-time options enumerated in
// §6's configuration table. The teacher's own config package was not
// present in the retrieved pack (only referenced by pacemaker/pbft as
// config.GetConfig()); this is authored fresh, using
// gopkg.in/yaml.v3 for the file format since that is the serialization
// library the rest of the example pack reaches for wherever a teacher
// file loads structured config from disk.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors §6's configuration options table exactly.
type Config struct {
	BlockInterval        time.Duration `yaml:"block_interval"`
	BatchSize            int           `yaml:"batch_size"`
	ConsensusTimeout     time.Duration `yaml:"consensus_timeout"`
	InitialReputation    float64       `yaml:"initial_reputation"`
	ShardRadius          float64       `yaml:"shard_radius"`
	MinShardSize         int           `yaml:"min_shard_size"`
	MaxShardSize         int           `yaml:"max_shard_size"`
	CommitteeSize        int           `yaml:"committee_size"`
	RedundantSize        int           `yaml:"redundant_size"`
	EpochLength          int           `yaml:"epoch_length"`
	ReputationDecayRate  float64       `yaml:"reputation_decay_rate"`
	Lambda               float64       `yaml:"lambda"`
	NatsAddress          string        `yaml:"nats_address"`
}

// Default returns §6's defaults.
func Default() Config {
	return Config{
		BlockInterval:       500 * time.Millisecond,
		BatchSize:           100,
		ConsensusTimeout:    5 * time.Second,
		InitialReputation:   0.5,
		ShardRadius:         3.0,
		MinShardSize:        50,
		MaxShardSize:        250,
		CommitteeSize:       15,
		RedundantSize:       5,
		EpochLength:         10,
		ReputationDecayRate: 0.01,
		Lambda:              0.1,
	}
}

// Load reads a YAML file at path and overlays it on Default(); a
// missing file is not an error — the defaults stand (§7 "no component
// surfaces exceptions upward").
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
