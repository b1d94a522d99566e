// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package consensus

import (
	"github.com/holiman/uint256"

	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/pow"
)

// chooseTip decides whether the chain ending at candidate replaces the
// active chain.
//
// Candidates are ranked by the chainwork of their PARENT chain, with every
// branch block discounted by how late the local node first saw it relative
// to the first active-chain block above the fork point. The candidate's
// own work never counts, so a lone heavy block on a stale parent cannot
// force a switch. The comparison is strict: on a tie the incumbent,
// first-seen tip is retained.
func (c *Consensus) chooseTip(candidate *chain.BlockSummary) (bool, *chain.Fork, error) {
	best := c.repo.BestBlockSummary()
	if candidate.ID() == best.ID() {
		return false, nil, nil
	}

	fork, err := c.repo.TraceFork(best.ID(), candidate.ID())
	if err != nil {
		return false, nil, err
	}
	if len(fork.Branch) == 0 {
		// candidate is on the active chain already
		return false, fork, nil
	}

	// the penalty reference: timestamp of the first active-chain block
	// above the fork point. Zero when the candidate extends the tip, which
	// disables the penalty.
	var activeForkStartTime uint64
	if len(fork.Trunk) > 0 {
		activeForkStartTime = fork.Trunk[len(fork.Trunk)-1].Header.Timestamp()
	}

	penalizedParentChainWork := new(uint256.Int).Set(fork.Ancestor.ChainWork)
	for i := len(fork.Branch) - 1; i >= 1; i-- {
		b := fork.Branch[i]
		penalizedParentChainWork.Add(
			penalizedParentChainWork,
			pow.PenalizedWork(b.Work, b.ReceivedTime, activeForkStartTime, c.params.TargetSpacing),
		)
	}

	bestParentChainWork := new(uint256.Int).Sub(best.ChainWork, best.Work)
	return penalizedParentChainWork.Cmp(bestParentChainWork) > 0, fork, nil
}
