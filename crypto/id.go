package crypto

import (
	"encoding/json"
	"fmt"
)

// MakeID hashes the JSON encoding of body and returns it as a hex
// string — the deterministic id used for proposal/block/QC identifiers
// throughout the consensus engine.
func MakeID(body interface{}) string {
	data, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Errorf("crypto: cannot encode id source: %w", err))
	}
	return Keccak256(data).Hex()
}
