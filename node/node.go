// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

// Package node runs the consensus core as a long-lived process: it owns
// the single writer over the repository and reports chain progress.
package node

import (
	"context"
	"sync"
	"time"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/co"
	"github.com/chain2/chain2/consensus"
	"github.com/chain2/chain2/log"
)

var logger = log.WithContext("pkg", "node")

// Node ties the repository and the consensus rules together. All block
// submissions funnel through it, so consensus decisions are made one block
// at a time no matter how many sources feed it.
type Node struct {
	goes co.Goes
	repo *chain.Repository
	cons *consensus.Consensus

	processLock sync.Mutex
}

// New create a Node instance.
func New(repo *chain.Repository, cons *consensus.Consensus) *Node {
	return &Node{
		repo: repo,
		cons: cons,
	}
}

// Run reconsiders chain heads left by a previous run, then reports tip
// changes until the context is canceled.
func (n *Node) Run(ctx context.Context) error {
	if err := n.cons.Reconsider(); err != nil {
		return err
	}
	best := n.repo.BestBlockSummary()
	logger.Info("chain synced",
		"number", best.Number(),
		"id", best.ID().AbbrevString(),
	)

	n.goes.Go(func() { n.tipLoop(ctx) })
	n.goes.Wait()
	return nil
}

// ProcessBlock validates and stores the block, possibly switching the
// active chain. Known blocks are dropped silently; invalid blocks are
// rejected with a reason but never abort the node.
func (n *Node) ProcessBlock(blk *block.Block) error {
	n.processLock.Lock()
	defer n.processLock.Unlock()

	receivedTime := uint64(time.Now().Unix())

	var (
		becameBest bool
		fork       *chain.Fork
	)
	err := evalBlockProcessMetrics(func() error {
		var err error
		becameBest, fork, err = n.cons.Process(blk, receivedTime)
		return err
	})
	if err != nil {
		switch {
		case consensus.IsKnownBlock(err):
			return nil
		case consensus.IsParentMissing(err):
			logger.Debug("parent missing",
				"id", blk.Header().ID().AbbrevString(),
				"parent", blk.Header().ParentID().AbbrevString(),
			)
			return err
		case consensus.IsCritical(err):
			logger.Warn("block rejected",
				"id", blk.Header().ID().AbbrevString(),
				"reason", consensus.RejectReason(err),
				"err", err,
			)
			return err
		default:
			return err
		}
	}

	if becameBest && fork != nil && len(fork.Trunk) > 0 {
		logger.Warn("chain reorg",
			"ancestor", fork.Ancestor.ID().AbbrevString(),
			"disconnected", len(fork.Trunk),
			"connected", len(fork.Branch),
		)
		metricChainForkCount().Add(1)
		metricChainForkSize().Set(int64(len(fork.Trunk)))
	}
	return nil
}

func (n *Node) tipLoop(ctx context.Context) {
	ticker := n.repo.NewTicker()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			best := n.repo.BestBlockSummary()
			logger.Info("new best block",
				"number", best.Number(),
				"id", best.ID().AbbrevString(),
				"chainwork", best.ChainWork.String(),
				"maxblocksize", best.MaxBlockSize,
			)
		}
	}
}
