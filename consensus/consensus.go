// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

// Package consensus implements the block acceptance rules: the
// penalized-work fork choice, the bit-signaled deployment state machine
// and the miner-voted block size limit.
package consensus

import (
	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/log"
)

var logger = log.WithContext("pkg", "consensus")

// Consensus validates incoming blocks against the chain held by the
// repository and decides which chain is best.
type Consensus struct {
	repo        *chain.Repository
	params      *chain2.Params
	deployments *DeploymentTracker
}

// New create a Consensus instance.
func New(repo *chain.Repository, params *chain2.Params) *Consensus {
	return &Consensus{
		repo:        repo,
		params:      params,
		deployments: NewDeploymentTracker(repo, params),
	}
}

// Deployments returns the deployment tracker.
func (c *Consensus) Deployments() *DeploymentTracker {
	return c.deployments
}

// Process validates the block, adds it to the repository and decides
// whether it becomes the head of the active chain. receivedTime is the
// local unix time the block was first seen; it never enters consensus
// state other than the fork-choice penalty.
//
// When the active chain switches, the returned fork describes the reorg:
// Trunk lists the disconnected summaries, Branch the connected ones.
func (c *Consensus) Process(blk *block.Block, receivedTime uint64) (becameBest bool, fork *chain.Fork, err error) {
	header := blk.Header()

	if _, err := c.repo.GetBlockSummary(header.ID()); err == nil {
		return false, nil, errKnownBlock
	} else if !c.repo.IsNotFound(err) {
		return false, nil, err
	}

	parent, err := c.repo.GetBlockSummary(header.ParentID())
	if err != nil {
		if c.repo.IsNotFound(err) {
			return false, nil, errParentMissing
		}
		return false, nil, err
	}

	maxBlockSize, err := c.NextMaxBlockSize(parent)
	if err != nil {
		return false, nil, err
	}

	if err := c.validate(blk, parent, maxBlockSize, receivedTime); err != nil {
		return false, nil, err
	}

	sizeVote := MaxBlockSizeVote(coinbaseScript(blk))

	summary, err := c.repo.AddBlock(blk, receivedTime, sizeVote, maxBlockSize, false)
	if err != nil {
		return false, nil, err
	}

	becameBest, fork, err = c.chooseTip(summary)
	if err != nil {
		return false, nil, err
	}
	if becameBest {
		if err := c.repo.SetBestID(summary.ID()); err != nil {
			return false, nil, err
		}
	}
	return becameBest, fork, nil
}

// Reconsider re-runs the fork choice over all known chain heads and
// switches to the strongest one. Used at startup, when heads saved by a
// previous run may outweigh the recorded best.
func (c *Consensus) Reconsider() error {
	for {
		best := c.repo.BestBlockSummary()
		heads, err := c.repo.ScanHeads(0)
		if err != nil {
			return err
		}

		switched := false
		for _, head := range heads {
			if head == best.ID() {
				continue
			}
			summary, err := c.repo.GetBlockSummary(head)
			if err != nil {
				return err
			}
			becameBest, _, err := c.chooseTip(summary)
			if err != nil {
				return err
			}
			if becameBest {
				if err := c.repo.SetBestID(head); err != nil {
					return err
				}
				switched = true
				break
			}
		}
		if !switched {
			return nil
		}
	}
}

func coinbaseScript(blk *block.Block) []byte {
	txs := blk.Transactions()
	if len(txs) == 0 {
		return nil
	}
	return txs[0].Script()
}
