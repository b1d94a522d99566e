// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package utils

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
)

const revBest int64 = -1

// Revision is a parsed block reference: "best", a block number or a
// block id.
type Revision struct {
	val any
}

// ParseRevision parses a query parameter into a block number or block ID.
func ParseRevision(revision string) (*Revision, error) {
	if revision == "" || revision == "best" {
		return &Revision{revBest}, nil
	}

	if len(revision) == 66 || len(revision) == 64 {
		blockID, err := chain2.ParseBytes32(revision)
		if err != nil {
			return nil, err
		}
		return &Revision{blockID}, nil
	}
	n, err := strconv.ParseUint(revision, 0, 0)
	if err != nil {
		return nil, err
	}
	if n > math.MaxUint32 {
		return nil, errors.New("block number out of max uint32")
	}
	return &Revision{uint32(n)}, err
}

// GetSummary returns the block summary for the given revision.
func GetSummary(rev *Revision, repo *chain.Repository) (sum *chain.BlockSummary, err error) {
	var id chain2.Bytes32
	switch rev := rev.val.(type) {
	case chain2.Bytes32:
		id = rev
	case uint32:
		id, err = repo.NewBestChain().GetBlockID(rev)
		if err != nil {
			return
		}
	case int64:
		if rev == revBest {
			id = repo.BestBlockSummary().Header.ID()
		}
	}
	if id.IsZero() {
		return nil, errors.New("invalid revision")
	}
	summary, err := repo.GetBlockSummary(id)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
