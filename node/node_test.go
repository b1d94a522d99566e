// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/consensus"
	"github.com/chain2/chain2/genesis"
	"github.com/chain2/chain2/lvldb"
	"github.com/chain2/chain2/tx"
)

func newTestNode(t *testing.T) (*Node, *chain.Repository, *block.Block) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	gene := genesis.Devnet()
	params := chain2.Devnet()
	repo, err := chain.NewRepository(db, gene, params.InitialMaxBlockSize)
	require.NoError(t, err)

	return New(repo, consensus.New(repo, &params)), repo, gene
}

func nextBlock(parent *block.Block, ts uint64) *block.Block {
	return new(block.Builder).
		ParentID(parent.Header().ID()).
		Timestamp(ts).
		Version(chain2.VersionTopBits).
		Bits(chain2.Devnet().PowLimitBits).
		Transaction(tx.New([]byte("/EB8/"), nil)).
		Build()
}

func TestProcessBlock(t *testing.T) {
	nd, repo, gene := newTestNode(t)

	b1 := nextBlock(gene, gene.Header().Timestamp()+600)
	require.NoError(t, nd.ProcessBlock(b1))
	assert.Equal(t, b1.Header().ID(), repo.BestBlockSummary().ID())

	// known block is not an error
	require.NoError(t, nd.ProcessBlock(b1))

	// an orphan is
	b3 := nextBlock(b1, b1.Header().Timestamp()+1200)
	b4 := nextBlock(b3, b3.Header().Timestamp()+600)
	assert.True(t, consensus.IsParentMissing(nd.ProcessBlock(b4)))

	// an invalid block is rejected but the node carries on
	bad := nextBlock(b1, b1.Header().Timestamp()) // not after parent
	err := nd.ProcessBlock(bad)
	assert.True(t, consensus.IsCritical(err))

	b2 := nextBlock(b1, b1.Header().Timestamp()+600)
	require.NoError(t, nd.ProcessBlock(b2))
	assert.Equal(t, b2.Header().ID(), repo.BestBlockSummary().ID())
}
