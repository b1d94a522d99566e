// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package blocks

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
)

// JSONBlockSummary block summary for json marshal.
type JSONBlockSummary struct {
	Number       uint32              `json:"number"`
	ID           chain2.Bytes32      `json:"id"`
	ParentID     chain2.Bytes32      `json:"parentID"`
	Timestamp    uint64              `json:"timestamp"`
	Version      math.HexOrDecimal64 `json:"version"`
	Bits         math.HexOrDecimal64 `json:"bits"`
	Nonce        math.HexOrDecimal64 `json:"nonce"`
	TxsRoot      chain2.Bytes32      `json:"txsRoot"`
	Size         uint64              `json:"size"`
	ChainWork    string              `json:"chainWork"`
	ReceivedTime uint64              `json:"receivedTime"`
	SizeVote     uint64              `json:"sizeVote"`
	MaxBlockSize uint64              `json:"maxBlockSize"`
	IsTrunk      bool                `json:"isTrunk"`
}

// JSONCollapsedBlock block summary plus the ids of its transactions.
type JSONCollapsedBlock struct {
	*JSONBlockSummary
	Transactions []chain2.Bytes32 `json:"transactions"`
}

// RawBlock a block in rlp, hex encoded.
type RawBlock struct {
	Raw string `json:"raw"`
}

func buildJSONBlockSummary(summary *chain.BlockSummary, isTrunk bool) *JSONBlockSummary {
	header := summary.Header
	return &JSONBlockSummary{
		Number:       header.Number(),
		ID:           header.ID(),
		ParentID:     header.ParentID(),
		Timestamp:    header.Timestamp(),
		Version:      math.HexOrDecimal64(header.Version()),
		Bits:         math.HexOrDecimal64(header.Bits()),
		Nonce:        math.HexOrDecimal64(header.Nonce()),
		TxsRoot:      header.TxsRoot(),
		Size:         summary.Size,
		ChainWork:    summary.ChainWork.Hex(),
		ReceivedTime: summary.ReceivedTime,
		SizeVote:     summary.SizeVote,
		MaxBlockSize: summary.MaxBlockSize,
		IsTrunk:      isTrunk,
	}
}
