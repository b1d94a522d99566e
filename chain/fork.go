// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain

import "github.com/chain2/chain2/chain2"

// Fork describes the fork between two chain heads.
//
//	 o---o---o---o---o---o trunk head
//	          \
//	ancestor   o---o branch head
//
// Trunk and Branch hold the summaries above the common ancestor, ordered
// from each head down towards the ancestor.
type Fork struct {
	Ancestor *BlockSummary
	Trunk    []*BlockSummary
	Branch   []*BlockSummary
}

// TraceFork traces the fork between the chains ending at trunkHeadID and
// branchHeadID. The two heads may be on the same chain, in which case one
// side of the fork is empty.
func (r *Repository) TraceFork(trunkHeadID, branchHeadID chain2.Bytes32) (*Fork, error) {
	t, err := r.GetBlockSummary(trunkHeadID)
	if err != nil {
		return nil, err
	}
	b, err := r.GetBlockSummary(branchHeadID)
	if err != nil {
		return nil, err
	}

	var trunk, branch []*BlockSummary
	for {
		if t.Number() > b.Number() {
			trunk = append(trunk, t)
			if t, err = r.GetBlockSummary(t.Header.ParentID()); err != nil {
				return nil, err
			}
			continue
		}
		if t.Number() < b.Number() {
			branch = append(branch, b)
			if b, err = r.GetBlockSummary(b.Header.ParentID()); err != nil {
				return nil, err
			}
			continue
		}
		if t.ID() == b.ID() {
			return &Fork{Ancestor: t, Trunk: trunk, Branch: branch}, nil
		}

		trunk = append(trunk, t)
		branch = append(branch, b)

		if t, err = r.GetBlockSummary(t.Header.ParentID()); err != nil {
			return nil, err
		}
		if b, err = r.GetBlockSummary(b.Header.ParentID()); err != nil {
			return nil, err
		}
	}
}
