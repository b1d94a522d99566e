// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chain2/chain2/block"
)

// process feeds the block in and applies the fork-choice outcome, the way
// the node does.
func (tc *testChain) process(t *testing.T, blk *block.Block, receivedTime uint64) bool {
	becameBest, _, err := tc.cons.Process(blk, receivedTime)
	require.NoError(t, err)
	if becameBest {
		require.NoError(t, tc.repo.SetBestID(blk.Header().ID()))
	}
	return becameBest
}

func TestChooseTipEqualWorkKeepsFirstSeen(t *testing.T) {
	tc := newTestChain(t, testParams())

	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	assert.True(t, tc.process(t, a1, genesisTime+600))

	// equal-work competitor at the same height arrives later
	b1 := mineBlock(tc.genesis, genesisTime+601, blockOpts{})
	assert.False(t, tc.process(t, b1, genesisTime+601))
	assert.Equal(t, a1.Header().ID(), tc.repo.BestBlockSummary().ID())
}

func TestChooseTipOwnWorkExcluded(t *testing.T) {
	tc := newTestChain(t, testParams())

	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	assert.True(t, tc.process(t, a1, genesisTime+600))

	// a single heavy block on the stale parent: its own work doesn't rank it
	b1 := mineBlock(tc.genesis, genesisTime+601, blockOpts{bits: bitsWork16})
	assert.False(t, tc.process(t, b1, genesisTime+601))
	assert.Equal(t, a1.Header().ID(), tc.repo.BestBlockSummary().ID())
}

func TestChooseTipPromptBranchWins(t *testing.T) {
	tc := newTestChain(t, testParams())

	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	assert.True(t, tc.process(t, a1, genesisTime+600))

	// branch blocks seen no later than the competing trunk block keep full
	// weight, so the longer branch takes over at its second block
	b1 := mineBlock(tc.genesis, genesisTime+601, blockOpts{})
	assert.False(t, tc.process(t, b1, genesisTime+600))

	b2 := mineBlock(b1, genesisTime+1201, blockOpts{})
	assert.True(t, tc.process(t, b2, genesisTime+1200))
	assert.Equal(t, b2.Header().ID(), tc.repo.BestBlockSummary().ID())
}

func TestChooseTipLateBranchPenalized(t *testing.T) {
	tc := newTestChain(t, testParams())

	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	a2 := mineBlock(a1, genesisTime+1200, blockOpts{})
	assert.True(t, tc.process(t, a1, genesisTime+600))
	assert.True(t, tc.process(t, a2, genesisTime+1200))

	// the same branch that would win if prompt loses when every block is
	// first seen 1800s after a1: work 2 >> 2 = 0 per block
	late := uint64(genesisTime + 600 + 1800)
	b1 := mineBlock(tc.genesis, genesisTime+601, blockOpts{})
	b2 := mineBlock(b1, genesisTime+1201, blockOpts{})
	b3 := mineBlock(b2, genesisTime+1801, blockOpts{})

	assert.False(t, tc.process(t, b1, late))
	assert.False(t, tc.process(t, b2, late))
	assert.False(t, tc.process(t, b3, late))
	assert.Equal(t, a2.Header().ID(), tc.repo.BestBlockSummary().ID())
}

func TestChooseTipPenaltyUsesReceiptTime(t *testing.T) {
	tc := newTestChain(t, testParams())

	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	a2 := mineBlock(a1, genesisTime+1200, blockOpts{})
	assert.True(t, tc.process(t, a1, genesisTime+600))
	assert.True(t, tc.process(t, a2, genesisTime+1200))

	// same branch, same timestamps, but seen promptly: it wins. The ledger
	// judges lateness by local receipt, not by what the blocks claim.
	b1 := mineBlock(tc.genesis, genesisTime+601, blockOpts{})
	b2 := mineBlock(b1, genesisTime+1201, blockOpts{})
	b3 := mineBlock(b2, genesisTime+1801, blockOpts{})

	assert.False(t, tc.process(t, b1, genesisTime+600))
	assert.False(t, tc.process(t, b2, genesisTime+600))
	assert.True(t, tc.process(t, b3, genesisTime+600))
	assert.Equal(t, b3.Header().ID(), tc.repo.BestBlockSummary().ID())
}

func TestChooseTipNoPenaltyExtendingTip(t *testing.T) {
	tc := newTestChain(t, testParams())

	// blocks extending the active tip are never penalized, however late
	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	assert.True(t, tc.process(t, a1, genesisTime+600+1_000_000))

	a2 := mineBlock(a1, genesisTime+1200, blockOpts{})
	assert.True(t, tc.process(t, a2, genesisTime+1200+1_000_000))
}

func TestChooseTipHeavierBranch(t *testing.T) {
	tc := newTestChain(t, testParams())

	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	a2 := mineBlock(a1, genesisTime+1200, blockOpts{})
	assert.True(t, tc.process(t, a1, genesisTime+600))
	assert.True(t, tc.process(t, a2, genesisTime+1200))

	// one heavy block plus one more outweighs the two-block trunk even with
	// a moderate penalty: (16 >> 1) = 8 > 4
	b1 := mineBlock(tc.genesis, genesisTime+601, blockOpts{bits: bitsWork16})
	b2 := mineBlock(b1, genesisTime+1201, blockOpts{})

	assert.False(t, tc.process(t, b1, genesisTime+600+600))
	assert.True(t, tc.process(t, b2, genesisTime+600+600))
	assert.Equal(t, b2.Header().ID(), tc.repo.BestBlockSummary().ID())
}

func TestReconsider(t *testing.T) {
	tc := newTestChain(t, testParams())

	// store two competing chains without ever running the fork choice,
	// simulating a node restarted with stale best
	a1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	b1 := mineBlock(tc.genesis, genesisTime+601, blockOpts{})
	b2 := mineBlock(b1, genesisTime+1201, blockOpts{})

	_, err := tc.repo.AddBlock(a1, genesisTime+600, 0, 1_000_000, true)
	require.NoError(t, err)
	for _, blk := range []*block.Block{b1, b2} {
		_, err := tc.repo.AddBlock(blk, blk.Header().Timestamp()-1, 0, 1_000_000, false)
		require.NoError(t, err)
	}

	require.NoError(t, tc.cons.Reconsider())
	assert.Equal(t, b2.Header().ID(), tc.repo.BestBlockSummary().ID())
}
