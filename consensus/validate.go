// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package consensus

import (
	"fmt"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/pow"
)

// validate performs the header and body checks that depend only on the
// block, its parent and the size limit fixed by the parent's window.
// Script and signature verification happen upstream, before a block gets
// here.
func (c *Consensus) validate(blk *block.Block, parent *chain.BlockSummary, maxBlockSize uint64, receivedTime uint64) error {
	header := blk.Header()

	if int32(header.Version()) < int32(chain2.VersionTopBits) {
		return consensusError(fmt.Sprintf("bad-version: rejected nVersion=0x%08x block", header.Version()))
	}

	if header.Timestamp() <= parent.Header.Timestamp() {
		return consensusError(fmt.Sprintf("time-too-old: block timestamp %v not after parent's %v",
			header.Timestamp(), parent.Header.Timestamp()))
	}
	if header.Timestamp() > receivedTime+c.params.FutureOffsetLimit {
		return consensusError(fmt.Sprintf("time-too-new: block timestamp %v too far in the future", header.Timestamp()))
	}

	if target, negative, overflow := pow.CompactToTarget(header.Bits()); negative || overflow || target.IsZero() {
		return consensusError(fmt.Sprintf("bad-diffbits: unusable target 0x%08x", header.Bits()))
	}

	txs := blk.Transactions()
	if len(txs) == 0 {
		return consensusError("bad-blk-length: no transactions")
	}
	if uint64(len(txs)) > maxBlockSize {
		return consensusError(fmt.Sprintf("bad-vtx-length: tx count %v exceeds limit %v", len(txs), maxBlockSize))
	}
	if uint64(blk.Size()) > maxBlockSize {
		return consensusError(fmt.Sprintf("bad-blk-length: block size %v exceeds limit %v", blk.Size(), maxBlockSize))
	}

	if root := txs.RootHash(); root != header.TxsRoot() {
		return consensusError(fmt.Sprintf("bad-txnmrklroot: txs root mismatch: want %v, have %v", header.TxsRoot(), root))
	}

	return nil
}
