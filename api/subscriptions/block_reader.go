// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package subscriptions

import (
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
)

// blockReader turns active-chain movement into a replayable message
// stream. Each Read diffs the current best chain against the reader's
// position: blocks the reorg disconnected come first, marked obsolete,
// then the newly connected ones, both oldest first.
type blockReader struct {
	repo *chain.Repository
	pos  chain2.Bytes32
}

func newBlockReader(repo *chain.Repository, position chain2.Bytes32) *blockReader {
	return &blockReader{
		repo: repo,
		pos:  position,
	}
}

func (br *blockReader) Read() ([]*BlockMessage, error) {
	best := br.repo.BestBlockSummary()
	if best.ID() == br.pos {
		return nil, nil
	}

	fork, err := br.repo.TraceFork(br.pos, best.ID())
	if err != nil {
		return nil, err
	}

	msgs := make([]*BlockMessage, 0, len(fork.Trunk)+len(fork.Branch))
	for i := len(fork.Trunk) - 1; i >= 0; i-- {
		msgs = append(msgs, convertBlock(fork.Trunk[i], true))
	}
	for i := len(fork.Branch) - 1; i >= 0; i-- {
		msgs = append(msgs, convertBlock(fork.Branch[i], false))
	}

	br.pos = best.ID()
	return msgs, nil
}
