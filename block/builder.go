// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package block

import (
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/tx"
)

// Builder to make it easy to build a block object.
type Builder struct {
	headerBody headerBody
	txs        tx.Transactions
}

// ParentID set parent id.
func (b *Builder) ParentID(id chain2.Bytes32) *Builder {
	b.headerBody.ParentID = id
	return b
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(ts uint64) *Builder {
	b.headerBody.Timestamp = ts
	return b
}

// Version set the version word.
func (b *Builder) Version(v uint32) *Builder {
	b.headerBody.Version = v
	return b
}

// Bits set the compact proof-of-work target.
func (b *Builder) Bits(bits uint32) *Builder {
	b.headerBody.Bits = bits
	return b
}

// Nonce set the proof-of-work nonce.
func (b *Builder) Nonce(nonce uint64) *Builder {
	b.headerBody.Nonce = nonce
	return b
}

// Transaction add a transaction.
func (b *Builder) Transaction(tx *tx.Transaction) *Builder {
	b.txs = append(b.txs, tx)
	return b
}

// Build build a block object.
func (b *Builder) Build() *Block {
	header := Header{body: b.headerBody}
	header.body.TxsRoot = b.txs.RootHash()

	return &Block{
		header: &header,
		txs:    b.txs,
	}
}
