// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain

import (
	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain2"
)

// Chain is a read-only view of the chain ending at a particular head
// block, active or not. Ancestor lookups resolve against this head, so a
// Chain gives consistent answers even while the active chain moves.
type Chain struct {
	repo   *Repository
	headID chain2.Bytes32
}

// NewChain creates a chain view ending at headID.
func (r *Repository) NewChain(headID chain2.Bytes32) *Chain {
	return &Chain{repo: r, headID: headID}
}

// NewBestChain creates a view of the current active chain.
func (r *Repository) NewBestChain() *Chain {
	return &Chain{repo: r, headID: r.BestBlockSummary().ID()}
}

// HeadID returns the head block id.
func (c *Chain) HeadID() chain2.Bytes32 {
	return c.headID
}

// GetBlockSummary returns the summary of the block at the given number on
// this chain.
func (c *Chain) GetBlockSummary(num uint32) (*BlockSummary, error) {
	summary, err := c.repo.GetBlockSummary(c.headID)
	if err != nil {
		return nil, err
	}
	if num > summary.Number() {
		return nil, errNotFound
	}
	for summary.Number() > num {
		if summary, err = c.repo.GetBlockSummary(summary.Header.ParentID()); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// GetBlockID returns the id of the block at the given number on this chain.
func (c *Chain) GetBlockID(num uint32) (chain2.Bytes32, error) {
	summary, err := c.GetBlockSummary(num)
	if err != nil {
		return chain2.Bytes32{}, err
	}
	return summary.ID(), nil
}

// HasBlock reports whether the block is on this chain.
func (c *Chain) HasBlock(id chain2.Bytes32) (bool, error) {
	foundID, err := c.GetBlockID(block.Number(id))
	if err != nil {
		if c.repo.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return foundID == id, nil
}

// IsNotFound returns if the given error means not found.
func (c *Chain) IsNotFound(err error) bool {
	return c.repo.IsNotFound(err)
}
