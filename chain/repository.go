// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

// Package chain maintains the block index: every block ever accepted, the
// active chain over them, and the per-block consensus attributes (chain
// work, receipt time, size votes) the decision rules operate on.
package chain

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/cache"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/co"
	"github.com/chain2/chain2/kv"
	"github.com/chain2/chain2/pow"
)

const summaryCacheLimit = 2048

var errNotFound = errors.New("not found")

// Repository stores block summaries and maintains the active chain.
//
// It's thread-safe.
type Repository struct {
	db      kv.GetPutCloser
	genesis *block.Block
	tag     byte

	bestSummary atomic.Value
	tick        co.Signal

	rw sync.Mutex // serializes writes

	caches struct {
		summaries *cache.LRU
		stats     cache.Stats
	}
}

// NewRepository create an instance of repository. initialMaxBlockSize is
// the size limit in force at genesis, before any voting window completed.
func NewRepository(db kv.GetPutCloser, genesis *block.Block, initialMaxBlockSize uint64) (*Repository, error) {
	if genesis.Header().Number() != 0 {
		return nil, errors.New("genesis number != 0")
	}

	genesisID := genesis.Header().ID()
	repo := &Repository{
		db:      db,
		genesis: genesis,
		tag:     genesisID[31],
	}
	repo.caches.summaries, _ = cache.NewLRU(summaryCacheLimit)

	if _, err := loadBestBlockID(db); err != nil {
		if !db.IsNotFound(err) {
			return nil, err
		}

		work := pow.WorkFromBits(genesis.Header().Bits())
		summary := &BlockSummary{
			Header:       genesis.Header(),
			Txs:          txIDs(genesis),
			Size:         uint64(genesis.Size()),
			Work:         work,
			ChainWork:    work,
			ReceivedTime: genesis.Header().Timestamp(),
			MaxBlockSize: initialMaxBlockSize,
		}

		batch := db.NewBatch()
		if err := saveBlockSummary(batch, summary); err != nil {
			return nil, err
		}
		if err := saveTrunkBlockID(batch, genesisID); err != nil {
			return nil, err
		}
		if err := saveChainHead(batch, genesisID, chain2.Bytes32{}); err != nil {
			return nil, err
		}
		if err := saveBestBlockID(batch, genesisID); err != nil {
			return nil, err
		}
		if err := batch.Write(); err != nil {
			return nil, err
		}

		repo.caches.summaries.Add(genesisID, summary)
		repo.bestSummary.Store(summary)
	} else {
		existingGenesisID, err := loadTrunkBlockID(db, 0)
		if err != nil {
			return nil, errors.Wrap(err, "get existing genesis id")
		}
		if existingGenesisID != genesisID {
			return nil, errors.New("genesis mismatch")
		}

		bestID, err := loadBestBlockID(db)
		if err != nil {
			return nil, err
		}
		summary, err := repo.GetBlockSummary(bestID)
		if err != nil {
			return nil, errors.Wrap(err, "get best block")
		}
		repo.bestSummary.Store(summary)
	}

	return repo, nil
}

func txIDs(blk *block.Block) []chain2.Bytes32 {
	txs := blk.Transactions()
	if len(txs) == 0 {
		return nil
	}
	ids := make([]chain2.Bytes32, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID())
	}
	return ids
}

// ChainTag returns chain tag, which is the last byte of genesis id.
func (r *Repository) ChainTag() byte {
	return r.tag
}

// GenesisBlock returns genesis block.
func (r *Repository) GenesisBlock() *block.Block {
	return r.genesis
}

// BestBlockSummary returns the summary of the best block, which is the
// head of the active chain.
func (r *Repository) BestBlockSummary() *BlockSummary {
	return r.bestSummary.Load().(*BlockSummary)
}

// AddBlock saves a new block into the repository. The block's parent must
// already be there. Adding an already known block is a no-op returning the
// stored summary.
//
// receivedTime is the local unix time the block was first seen, sizeVote
// the size preference parsed from its coinbase, and maxBlockSize the size
// limit that applied to the block. When asBest is set the active chain is
// switched to end at the new block.
func (r *Repository) AddBlock(newBlock *block.Block, receivedTime, sizeVote, maxBlockSize uint64, asBest bool) (*BlockSummary, error) {
	r.rw.Lock()
	defer r.rw.Unlock()

	header := newBlock.Header()
	id := header.ID()

	if summary, err := r.GetBlockSummary(id); err == nil {
		return summary, nil
	} else if !r.IsNotFound(err) {
		return nil, err
	}

	parentSummary, err := r.GetBlockSummary(header.ParentID())
	if err != nil {
		if r.IsNotFound(err) {
			return nil, errors.New("parent missing")
		}
		return nil, err
	}

	work := pow.WorkFromBits(header.Bits())
	summary := &BlockSummary{
		Header:       header,
		Txs:          txIDs(newBlock),
		Size:         uint64(newBlock.Size()),
		Work:         work,
		ChainWork:    new(uint256.Int).Add(work, parentSummary.ChainWork),
		ReceivedTime: receivedTime,
		SizeVote:     sizeVote,
		MaxBlockSize: maxBlockSize,
	}

	batch := r.db.NewBatch()
	if err := saveBlockSummary(batch, summary); err != nil {
		return nil, err
	}
	if err := saveChainHead(batch, id, header.ParentID()); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, err
	}
	r.caches.summaries.Add(id, summary)

	if asBest {
		if err := r.setBest(summary); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// SetBestID switches the active chain to end at the given block, which
// must already be stored. The trunk index is rewritten atomically; readers
// observe either the old chain or the new one, never a mix.
func (r *Repository) SetBestID(id chain2.Bytes32) error {
	r.rw.Lock()
	defer r.rw.Unlock()

	summary, err := r.GetBlockSummary(id)
	if err != nil {
		return err
	}
	return r.setBest(summary)
}

// setBest rewrites the trunk index. Caller must hold r.rw.
func (r *Repository) setBest(newBest *BlockSummary) error {
	best := r.BestBlockSummary()
	if best.ID() == newBest.ID() {
		return nil
	}

	fork, err := r.TraceFork(best.ID(), newBest.ID())
	if err != nil {
		return err
	}

	batch := r.db.NewBatch()
	for _, old := range fork.Trunk {
		if err := eraseTrunkBlockID(batch, old.ID()); err != nil {
			return err
		}
	}
	// write bottom-up so a prefix scan never sees a gap
	for i := len(fork.Branch) - 1; i >= 0; i-- {
		if err := saveTrunkBlockID(batch, fork.Branch[i].ID()); err != nil {
			return err
		}
	}
	if err := saveBestBlockID(batch, newBest.ID()); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}

	r.bestSummary.Store(newBest)
	metricBestNumber().Set(int64(newBest.Number()))
	if n := len(fork.Trunk); n > 0 {
		metricReorgedBlocks().Add(int64(n))
	}
	r.tick.Broadcast()
	return nil
}

// GetBlockSummary get block summary by block id.
func (r *Repository) GetBlockSummary(id chain2.Bytes32) (*BlockSummary, error) {
	if v, ok := r.caches.summaries.Get(id); ok {
		if r.caches.stats.Hit()%2000 == 0 {
			_, hit, miss := r.caches.stats.Stats()
			metricCacheHitMiss().SetWithLabel(hit, map[string]string{"type": "block-summary", "event": "hit"})
			metricCacheHitMiss().SetWithLabel(miss, map[string]string{"type": "block-summary", "event": "miss"})
		}
		return v.(*BlockSummary), nil
	}
	r.caches.stats.Miss()

	summary, err := loadBlockSummary(r.db, id)
	if err != nil {
		if r.db.IsNotFound(err) {
			return nil, errNotFound
		}
		return nil, err
	}
	r.caches.summaries.Add(id, summary)
	return summary, nil
}

// GetBlockIDByNumber returns the id of the active-chain block at the given
// number.
func (r *Repository) GetBlockIDByNumber(num uint32) (chain2.Bytes32, error) {
	id, err := loadTrunkBlockID(r.db, num)
	if err != nil {
		if r.db.IsNotFound(err) {
			return chain2.Bytes32{}, errNotFound
		}
		return chain2.Bytes32{}, err
	}
	return id, nil
}

// ScanHeads returns the ids of all leaf blocks numbered from(included) or
// above, in descending number order. The head of the active chain is
// always among them.
func (r *Repository) ScanHeads(from uint32) ([]chain2.Bytes32, error) {
	return loadChainHeads(r.db, from)
}

// MedianTimePast computes the median timestamp of up to MedianTimeSpan
// blocks ending at (and including) the given block.
func (r *Repository) MedianTimePast(id chain2.Bytes32) (uint64, error) {
	timestamps := make([]uint64, 0, chain2.MedianTimeSpan)

	for {
		summary, err := r.GetBlockSummary(id)
		if err != nil {
			return 0, err
		}
		timestamps = append(timestamps, summary.Header.Timestamp())
		if len(timestamps) == chain2.MedianTimeSpan || summary.Number() == 0 {
			break
		}
		id = summary.Header.ParentID()
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps[len(timestamps)/2], nil
}

// IsNotFound returns if the given error means not found.
func (r *Repository) IsNotFound(err error) bool {
	return err == errNotFound || r.db.IsNotFound(err)
}

// NewTicker create a signal Waiter to receive event that the best block changed.
func (r *Repository) NewTicker() co.Waiter {
	return r.tick.NewWaiter()
}
