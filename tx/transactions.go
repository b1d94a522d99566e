// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package tx

import (
	"io"

	"github.com/chain2/chain2/chain2"
)

// Transactions a slice of transactions.
type Transactions []*Transaction

// RootHash computes merkle root hash of transactions.
func (txs Transactions) RootHash() chain2.Bytes32 {
	if len(txs) == 0 {
		// optimized for empty list
		return emptyRoot
	}
	return chain2.Blake2bFn(func(w io.Writer) {
		for _, tx := range txs {
			id := tx.ID()
			w.Write(id[:])
		}
	})
}

var emptyRoot = chain2.Blake2b(nil)
