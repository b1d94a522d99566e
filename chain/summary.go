// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain

import (
	"github.com/holiman/uint256"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain2"
)

// BlockSummary is the indexed form of a block: its header plus the
// chain-state attributes consensus needs without touching the block body.
type BlockSummary struct {
	Header *block.Header
	Txs    []chain2.Bytes32
	Size   uint64

	// Work is the expected hash count of this block alone, ChainWork the
	// cumulative work of the chain ending at this block.
	Work      *uint256.Int
	ChainWork *uint256.Int

	// ReceivedTime is the unix time the local node first saw the block.
	// It never changes afterwards, reorgs included.
	ReceivedTime uint64

	// SizeVote is the max-block-size preference signaled by the block's
	// coinbase, in bytes. Zero means abstention.
	SizeVote uint64

	// MaxBlockSize is the size limit that applied to this block, fixed by
	// its parent's voting window.
	MaxBlockSize uint64
}

// ID returns the block id.
func (s *BlockSummary) ID() chain2.Bytes32 {
	return s.Header.ID()
}

// Number returns the block number.
func (s *BlockSummary) Number() uint32 {
	return s.Header.Number()
}
