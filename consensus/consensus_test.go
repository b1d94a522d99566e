// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/lvldb"
	"github.com/chain2/chain2/tx"
)

// compact targets whose work values are small powers of two
const (
	bitsWork2  = 0x207fffff
	bitsWork4  = 0x203fffff
	bitsWork8  = 0x201fffff
	bitsWork16 = 0x200fffff
)

const genesisTime = 10000

func testParams() chain2.Params {
	return chain2.Params{
		TargetSpacing:       600,
		PowLimitBits:        bitsWork2,
		FutureOffsetLimit:   7200,
		SizeVoteInterval:    4,
		SizeChangePosition:  3,
		InitialMaxBlockSize: 1_000_000,
		Deployments:         map[string]chain2.Deployment{},
	}
}

type testChain struct {
	repo    *chain.Repository
	cons    *Consensus
	genesis *block.Block
}

func newTestChain(t *testing.T, params chain2.Params) *testChain {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	genesis := new(block.Builder).
		Timestamp(genesisTime).
		Version(chain2.VersionTopBits).
		Bits(params.PowLimitBits).
		Transaction(tx.New([]byte("genesis"), nil)).
		Build()

	repo, err := chain.NewRepository(db, genesis, params.InitialMaxBlockSize)
	require.NoError(t, err)
	return &testChain{repo, New(repo, &params), genesis}
}

type blockOpts struct {
	version  uint32
	bits     uint32
	coinbase string
}

func mineBlock(parent *block.Block, ts uint64, opts blockOpts) *block.Block {
	if opts.version == 0 {
		opts.version = chain2.VersionTopBits
	}
	if opts.bits == 0 {
		opts.bits = bitsWork2
	}
	if opts.coinbase == "" {
		opts.coinbase = "coinbase"
	}
	return new(block.Builder).
		ParentID(parent.Header().ID()).
		Timestamp(ts).
		Version(opts.version).
		Bits(opts.bits).
		Transaction(tx.New([]byte(opts.coinbase), nil)).
		Build()
}

func TestProcessExtendTip(t *testing.T) {
	tc := newTestChain(t, testParams())

	b1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{coinbase: "/BIP100/B2/"})
	becameBest, fork, err := tc.cons.Process(b1, genesisTime+600)
	require.NoError(t, err)
	assert.True(t, becameBest)
	assert.Equal(t, 0, len(fork.Trunk))

	require.NoError(t, tc.repo.SetBestID(b1.Header().ID()))
	assert.Equal(t, b1.Header().ID(), tc.repo.BestBlockSummary().ID())

	// the coinbase vote was parsed and recorded
	summary, err := tc.repo.GetBlockSummary(b1.Header().ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), summary.SizeVote)
	assert.Equal(t, uint64(1_000_000), summary.MaxBlockSize)
}

func TestProcessKnownBlock(t *testing.T) {
	tc := newTestChain(t, testParams())

	b1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	_, _, err := tc.cons.Process(b1, genesisTime+600)
	require.NoError(t, err)

	_, _, err = tc.cons.Process(b1, genesisTime+700)
	assert.True(t, IsKnownBlock(err))
	assert.False(t, IsCritical(err))
}

func TestProcessParentMissing(t *testing.T) {
	tc := newTestChain(t, testParams())

	b1 := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
	b2 := mineBlock(b1, genesisTime+1200, blockOpts{})

	_, _, err := tc.cons.Process(b2, genesisTime+1200)
	assert.True(t, IsParentMissing(err))
	assert.False(t, IsCritical(err))
}

func TestProcessValidation(t *testing.T) {
	tests := []struct {
		name     string
		blk      func(tc *testChain) *block.Block
		received uint64
		reason   string
	}{
		{
			"version without top bits",
			func(tc *testChain) *block.Block {
				return mineBlock(tc.genesis, genesisTime+600, blockOpts{version: 0x1fffffff})
			},
			genesisTime + 600,
			"bad-version",
		},
		{
			"negative version",
			func(tc *testChain) *block.Block {
				return mineBlock(tc.genesis, genesisTime+600, blockOpts{version: 0x80000001})
			},
			genesisTime + 600,
			"bad-version",
		},
		{
			"timestamp not after parent",
			func(tc *testChain) *block.Block {
				return mineBlock(tc.genesis, genesisTime, blockOpts{})
			},
			genesisTime + 600,
			"time-too-old",
		},
		{
			"timestamp too far in the future",
			func(tc *testChain) *block.Block {
				return mineBlock(tc.genesis, genesisTime+600+7201, blockOpts{})
			},
			genesisTime + 600,
			"time-too-new",
		},
		{
			"unusable target",
			func(tc *testChain) *block.Block {
				return mineBlock(tc.genesis, genesisTime+600, blockOpts{bits: 0x01003456})
			},
			genesisTime + 600,
			"bad-diffbits",
		},
		{
			"no transactions",
			func(tc *testChain) *block.Block {
				return new(block.Builder).
					ParentID(tc.genesis.Header().ID()).
					Timestamp(genesisTime + 600).
					Version(chain2.VersionTopBits).
					Bits(bitsWork2).
					Build()
			},
			genesisTime + 600,
			"bad-blk-length",
		},
		{
			"txs root mismatch",
			func(tc *testChain) *block.Block {
				good := mineBlock(tc.genesis, genesisTime+600, blockOpts{})
				return block.Compose(good.Header(), tx.Transactions{tx.New([]byte("other"), nil)})
			},
			genesisTime + 600,
			"bad-txnmrklroot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestChain(t, testParams())
			_, _, err := tc.cons.Process(tt.blk(tc), tt.received)
			require.Error(t, err)
			assert.True(t, IsCritical(err))
			assert.Equal(t, tt.reason, RejectReason(err))

			// rejected blocks are never stored
			_, err = tc.repo.GetBlockSummary(tt.blk(tc).Header().ID())
			assert.True(t, tc.repo.IsNotFound(err))
		})
	}
}

// TestReorgRoundTripRecompute switches to a competing branch and back,
// checking that every derived value (trunk index, chainwork, deployment
// state, size limit) is recomputed to exactly what it was before.
func TestReorgRoundTripRecompute(t *testing.T) {
	tc := newTestChain(t, deploymentParams())
	tracker := tc.cons.Deployments()

	extend := func(parent *block.Block, count int, version func(uint32) uint32, vote uint64) []*block.Block {
		blocks := []*block.Block{parent}
		for i := 0; i < count; i++ {
			height := parent.Header().Number() + 1
			blk := new(block.Builder).
				ParentID(parent.Header().ID()).
				Timestamp(genesisTime + uint64(height)).
				Version(version(height)).
				Bits(bitsWork2).
				Transaction(tx.New([]byte("coinbase"), nil)).
				Build()
			_, err := tc.repo.AddBlock(blk, blk.Header().Timestamp(), vote, 1_000_000, true)
			require.NoError(t, err)
			blocks = append(blocks, blk)
			parent = blk
		}
		return blocks
	}

	main := extend(tc.genesis, 15, signalAll, 2_000_000)
	mainTip, err := tc.repo.GetBlockSummary(main[15].Header().ID())
	require.NoError(t, err)

	// derived facts on the original chain
	trunkBefore := make([]chain2.Bytes32, 0, 15)
	for n := uint32(1); n <= 15; n++ {
		id, err := tc.repo.GetBlockIDByNumber(n)
		require.NoError(t, err)
		trunkBefore = append(trunkBefore, id)
	}
	workBefore := mainTip.ChainWork.Clone()
	stateBefore, err := tracker.StateOf("alpha", main[15].Header().ID())
	require.NoError(t, err)
	assert.Equal(t, LockedIn, stateBefore)
	sizeBefore, err := tc.cons.NextMaxBlockSize(mainTip)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_050_000), sizeBefore)

	// the competing branch signals nothing and votes the size down; its
	// window tallies its own blocks, not the abandoned ones
	side := extend(main[10], 5, noSignals, 500_000)
	sideTip, err := tc.repo.GetBlockSummary(side[5].Header().ID())
	require.NoError(t, err)
	assert.Equal(t, sideTip.ID(), tc.repo.BestBlockSummary().ID())

	sideState, err := tracker.StateOf("alpha", side[5].Header().ID())
	require.NoError(t, err)
	assert.Equal(t, Started, sideState)
	sideSize, err := tc.cons.NextMaxBlockSize(sideTip)
	require.NoError(t, err)
	assert.Equal(t, uint64(952_380), sideSize)

	// back to the original chain: everything recomputes to the old values
	require.NoError(t, tc.repo.SetBestID(main[15].Header().ID()))
	assert.Equal(t, main[15].Header().ID(), tc.repo.BestBlockSummary().ID())

	for n := uint32(1); n <= 15; n++ {
		id, err := tc.repo.GetBlockIDByNumber(n)
		require.NoError(t, err)
		assert.Equal(t, trunkBefore[n-1], id, "height %d", n)
	}
	mainTip, err = tc.repo.GetBlockSummary(main[15].Header().ID())
	require.NoError(t, err)
	assert.Equal(t, workBefore, mainTip.ChainWork)

	state, err := tracker.StateOf("alpha", main[15].Header().ID())
	require.NoError(t, err)
	assert.Equal(t, stateBefore, state)
	size, err := tc.cons.NextMaxBlockSize(mainTip)
	require.NoError(t, err)
	assert.Equal(t, sizeBefore, size)
}

func TestProcessOversizedBlock(t *testing.T) {
	tc := newTestChain(t, testParams())

	payload := make([]byte, 1_100_000) // over the 1MB initial limit
	blk := new(block.Builder).
		ParentID(tc.genesis.Header().ID()).
		Timestamp(genesisTime + 600).
		Version(chain2.VersionTopBits).
		Bits(bitsWork2).
		Transaction(tx.New(nil, payload)).
		Build()

	_, _, err := tc.cons.Process(blk, genesisTime+600)
	require.Error(t, err)
	assert.Equal(t, "bad-blk-length", RejectReason(err))
}
