// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package tx

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/chain2/chain2/chain2"
)

// Transaction an already-verified transaction, reduced to what the consensus
// core needs: its identity, its serialized size, and the script of the first
// input (the coinbase script carries the miner's size-limit vote).
// It's immutable.
type Transaction struct {
	body txBody

	cache struct {
		id   atomic.Value
		size atomic.Value
	}
}

type txBody struct {
	Script  []byte
	Payload []byte
}

// New creates a transaction with the given input script and opaque payload.
func New(script, payload []byte) *Transaction {
	return &Transaction{
		body: txBody{
			Script:  append([]byte(nil), script...),
			Payload: append([]byte(nil), payload...),
		},
	}
}

// Script returns the first input script.
func (t *Transaction) Script() []byte {
	return append([]byte(nil), t.body.Script...)
}

// ID computes id of the transaction.
func (t *Transaction) ID() (id chain2.Bytes32) {
	if cached := t.cache.id.Load(); cached != nil {
		return cached.(chain2.Bytes32)
	}
	defer func() { t.cache.id.Store(id) }()

	id = chain2.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, &t.body)
	})
	return
}

// Size returns the serialized size of the transaction in bytes.
func (t *Transaction) Size() (size uint64) {
	if cached := t.cache.size.Load(); cached != nil {
		return cached.(uint64)
	}
	defer func() { t.cache.size.Store(size) }()

	data, _ := rlp.EncodeToBytes(&t.body)
	size = uint64(len(data))
	return
}

// EncodeRLP implements rlp.Encoder
func (t *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &t.body)
}

// DecodeRLP implements rlp.Decoder
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var body txBody
	if err := s.Decode(&body); err != nil {
		return err
	}
	*t = Transaction{body: body}
	return nil
}

func (t *Transaction) String() string {
	return fmt.Sprintf("Tx(%v) size=%v", t.ID(), t.Size())
}
