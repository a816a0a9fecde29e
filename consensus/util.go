package consensus

import (
	"strconv"
	"time"

	"tribft/crypto"
	"tribft/message"
	"tribft/types"
)

func roundNow() time.Time { return time.Now() }

func signVote(signer types.NodeID, v *message.Vote) crypto.Signature {
	return crypto.Sign(string(signer), []byte(v.ProposalID+v.Phase.String()))
}

func shardLabel(s types.ShardID) string { return strconv.Itoa(int(s)) }

func heightString(h types.BlockHeight) string { return strconv.FormatUint(uint64(h), 10) }

func viewString(v types.View) string { return strconv.FormatUint(uint64(v), 10) }
