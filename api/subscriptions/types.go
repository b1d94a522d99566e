// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package subscriptions

import (
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
)

// BlockMessage one active-chain change pushed to a subscriber. Obsolete
// marks a block disconnected by a reorg; subscribers replaying the feed
// must drop it and everything they derived from it.
type BlockMessage struct {
	Number       uint32         `json:"number"`
	ID           chain2.Bytes32 `json:"id"`
	ParentID     chain2.Bytes32 `json:"parentID"`
	Timestamp    uint64         `json:"timestamp"`
	ChainWork    string         `json:"chainWork"`
	MaxBlockSize uint64         `json:"maxBlockSize"`
	Obsolete     bool           `json:"obsolete"`
}

func convertBlock(summary *chain.BlockSummary, obsolete bool) *BlockMessage {
	return &BlockMessage{
		Number:       summary.Number(),
		ID:           summary.ID(),
		ParentID:     summary.Header.ParentID(),
		Timestamp:    summary.Header.Timestamp(),
		ChainWork:    summary.ChainWork.Hex(),
		MaxBlockSize: summary.MaxBlockSize,
		Obsolete:     obsolete,
	}
}
