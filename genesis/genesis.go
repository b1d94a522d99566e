// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

// Package genesis builds the hard-coded first block of each network.
package genesis

import (
	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/tx"
)

// Mainnet returns the genesis block of the main network.
func Mainnet() *block.Block {
	return build(1590105600, chain2.Mainnet().PowLimitBits, "/chain2:mainnet/")
}

// Devnet returns the genesis block used for local development and tests.
func Devnet() *block.Block {
	return build(1526400000, chain2.Devnet().PowLimitBits, "/chain2:devnet/")
}

// build assembles a deterministic genesis block. The coinbase script names
// the network so the two genesis ids can never collide.
func build(timestamp uint64, bits uint32, marker string) *block.Block {
	coinbase := tx.New([]byte(marker), nil)

	return new(block.Builder).
		ParentID(chain2.Bytes32{}).
		Timestamp(timestamp).
		Version(chain2.VersionTopBits).
		Bits(bits).
		Nonce(0).
		Transaction(coinbase).
		Build()
}
