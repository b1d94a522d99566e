// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain2"
)

func TestChain(t *testing.T) {
	repo, genesis, _ := newTestRepo(t)

	a1 := newTestBlock(genesis, 10600)
	a2 := newTestBlock(a1, 11200)
	b1 := newTestBlock(genesis, 10601)

	for _, blk := range []*block.Block{a1, a2} {
		_, err := repo.AddBlock(blk, blk.Header().Timestamp(), 0, 1_000_000, true)
		assert.Nil(t, err)
	}
	_, err := repo.AddBlock(b1, b1.Header().Timestamp(), 0, 1_000_000, false)
	assert.Nil(t, err)

	best := repo.NewBestChain()
	assert.Equal(t, a2.Header().ID(), best.HeadID())

	assert.Equal(t, M(a1.Header().ID(), nil), M(best.GetBlockID(1)))
	assert.Equal(t, M(true, nil), M(best.HasBlock(a1.Header().ID())))
	assert.Equal(t, M(false, nil), M(best.HasBlock(b1.Header().ID())))

	summary, err := best.GetBlockSummary(1)
	assert.Nil(t, err)
	assert.Equal(t, a1.Header().ID(), summary.ID())

	// a view pinned at a side head sees its own chain
	side := repo.NewChain(b1.Header().ID())
	assert.Equal(t, M(b1.Header().ID(), nil), M(side.GetBlockID(1)))
	assert.Equal(t, M(true, nil), M(side.HasBlock(genesis.Header().ID())))
	assert.Equal(t, M(false, nil), M(side.HasBlock(a2.Header().ID())))

	// beyond the head
	_, err = best.GetBlockID(9)
	assert.True(t, best.IsNotFound(err))

	_, err = best.GetBlockSummary(9)
	assert.True(t, best.IsNotFound(err))

	assert.Equal(t, M(false, nil), M(best.HasBlock(chain2.Bytes32{0, 0, 0, 9})))
}
