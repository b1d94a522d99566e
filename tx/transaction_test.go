// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package tx

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction(t *testing.T) {
	trx := New([]byte("script"), []byte("payload"))

	assert.Equal(t, []byte("script"), trx.Script())
	assert.Equal(t, trx.ID(), trx.ID()) // stable

	// the script accessor returns a copy
	s := trx.Script()
	s[0] = 'x'
	assert.Equal(t, []byte("script"), trx.Script())

	assert.NotEqual(t, trx.ID(), New([]byte("script2"), []byte("payload")).ID())
	assert.NotEqual(t, trx.ID(), New([]byte("script"), []byte("payload2")).ID())
}

func TestTransactionEncoding(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 1024)

	for i := 0; i < 32; i++ {
		var script, payload []byte
		f.Fuzz(&script)
		f.Fuzz(&payload)

		trx := New(script, payload)
		data, err := rlp.EncodeToBytes(trx)
		require.NoError(t, err)
		assert.Equal(t, uint64(len(data)), trx.Size())

		var decoded Transaction
		require.NoError(t, rlp.DecodeBytes(data, &decoded))
		assert.Equal(t, trx.ID(), decoded.ID())
		assert.Equal(t, trx.Script(), decoded.Script())
	}
}

func TestTransactionsRootHash(t *testing.T) {
	txs := Transactions{
		New([]byte("a"), nil),
		New([]byte("b"), nil),
	}

	assert.Equal(t, txs.RootHash(), txs.RootHash())

	// order matters
	reversed := Transactions{txs[1], txs[0]}
	assert.NotEqual(t, txs.RootHash(), reversed.RootHash())

	// empty set has a well-known root
	assert.Equal(t, Transactions(nil).RootHash(), Transactions{}.RootHash())
	assert.NotEqual(t, txs.RootHash(), Transactions(nil).RootHash())
}
