// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package consensus

import (
	"sort"
	"strconv"

	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
)

// MaxBlockSizeVote extracts the size-limit vote from a coinbase script, in
// bytes. Votes are '/'-delimited markers: "/BIP100/B<megabytes>/" is the
// explicit form and wins over the fallback "/EB<megabytes>/" form, which
// miners emit as their effective accepted size. Absent or malformed votes
// count as abstention (zero).
func MaxBlockSizeVote(coinbase []byte) uint64 {
	if len(coinbase) < 5 { // shortest vote is /EB1/
		return 0
	}
	return uint64(findVote(string(coinbase))) * chain2.MinSizeVote
}

func findVote(coinbase string) uint32 {
	var (
		curr       []byte
		started    bool
		bip100vote bool
		ebVoteMB   uint32
		ebVote     bool
	)

	for i := 0; i < len(coinbase); i++ {
		s := coinbase[i]
		if s != '/' {
			if started {
				curr = append(curr, s)
			}
			continue
		}
		started = true

		// end (or beginning) of a potential vote string
		if len(curr) < 2 { // minimum vote string length is 2
			bip100vote = false
			curr = curr[:0]
			continue
		}

		if string(curr) == "BIP100" {
			bip100vote = true
			curr = curr[:0]
			continue
		}

		// a B vote; the first one decides
		if bip100vote && curr[0] == 'B' {
			if v, err := strconv.ParseUint(string(curr[1:]), 10, 32); err == nil {
				return uint32(v)
			}
		}

		// an EB vote; keep it, but continue to look for a BIP100/B vote
		if !ebVote && curr[0] == 'E' && curr[1] == 'B' {
			if v, err := strconv.ParseUint(string(curr[2:]), 10, 32); err == nil {
				ebVoteMB = uint32(v)
				ebVote = true
			}
		}

		bip100vote = false
		curr = curr[:0]
	}
	return ebVoteMB
}

// NextMaxBlockSize computes the size limit for a block built on top of
// parent. The limit only moves at vote interval boundaries; within a
// window every block inherits the parent's limit. At a boundary the just
// closed window's votes are sorted and read at the configured change
// position from both ends, so a raise and a lower each need the same
// supermajority. One retarget moves the limit at most 5% either way.
func (c *Consensus) NextMaxBlockSize(parent *chain.BlockSummary) (uint64, error) {
	maxBlockSize := parent.MaxBlockSize

	// only change once per adjustment interval
	if (parent.Number()+1)%c.params.SizeVoteInterval != 0 {
		return maxBlockSize, nil
	}

	interval := c.params.SizeVoteInterval
	votes := make([]uint64, 0, interval)

	walk := parent
	for i := uint32(0); i < interval; i++ {
		vote := walk.SizeVote
		if vote == 0 {
			vote = maxBlockSize
		}
		votes = append(votes, vote)

		if i+1 < interval {
			var err error
			if walk, err = c.repo.GetBlockSummary(walk.Header.ParentID()); err != nil {
				return 0, err
			}
		}
	}

	sort.Slice(votes, func(i, j int) bool { return votes[i] < votes[j] })
	lowerValue := votes[c.params.SizeChangePosition-1]
	raiseValue := votes[interval-c.params.SizeChangePosition]

	if raiseCap := maxBlockSize * 105 / 100; raiseValue > raiseCap {
		raiseValue = raiseCap
	}
	if raiseValue > maxBlockSize {
		maxBlockSize = raiseValue
	} else {
		if lowerFloor := maxBlockSize * 100 / 105; lowerValue < lowerFloor {
			lowerValue = lowerFloor
		}
		if lowerValue < maxBlockSize {
			maxBlockSize = lowerValue
		}
	}

	if maxBlockSize != parent.MaxBlockSize {
		logger.Info("max block size retarget",
			"height", parent.Number()+1,
			"before", parent.MaxBlockSize,
			"after", maxBlockSize,
		)
	}
	return maxBlockSize, nil
}
