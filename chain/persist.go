// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/kv"
)

// Key layout:
//
//	's' | block id                  -> rlp(BlockSummary)
//	't' | block number (BE)         -> block id, the active chain index
//	'h' | block number (BE) | id    -> nil, set of leaf blocks
//	"best-block-id"                 -> block id
const (
	summaryPrefix = byte('s')
	trunkPrefix   = byte('t')
	headPrefix    = byte('h')
)

var bestBlockIDKey = []byte("best-block-id")

func saveRLP(w kv.Putter, key []byte, val interface{}) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, data)
}

func loadRLP(r kv.Getter, key []byte, val interface{}) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, val)
}

func summaryKey(id chain2.Bytes32) []byte {
	return append([]byte{summaryPrefix}, id[:]...)
}

func saveBlockSummary(w kv.Putter, summary *BlockSummary) error {
	return saveRLP(w, summaryKey(summary.Header.ID()), summary)
}

func loadBlockSummary(r kv.Getter, id chain2.Bytes32) (*BlockSummary, error) {
	var summary BlockSummary
	if err := loadRLP(r, summaryKey(id), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func trunkKey(num uint32) []byte {
	return binary.BigEndian.AppendUint32([]byte{trunkPrefix}, num)
}

func saveTrunkBlockID(w kv.Putter, id chain2.Bytes32) error {
	return w.Put(trunkKey(block.Number(id)), id[:])
}

func eraseTrunkBlockID(w kv.Putter, id chain2.Bytes32) error {
	return w.Delete(trunkKey(block.Number(id)))
}

func loadTrunkBlockID(r kv.Getter, num uint32) (chain2.Bytes32, error) {
	data, err := r.Get(trunkKey(num))
	if err != nil {
		return chain2.Bytes32{}, err
	}
	return chain2.BytesToBytes32(data), nil
}

func saveBestBlockID(w kv.Putter, id chain2.Bytes32) error {
	return w.Put(bestBlockIDKey, id[:])
}

func loadBestBlockID(r kv.Getter) (chain2.Bytes32, error) {
	data, err := r.Get(bestBlockIDKey)
	if err != nil {
		return chain2.Bytes32{}, err
	}
	return chain2.BytesToBytes32(data), nil
}

func headKey(id chain2.Bytes32) []byte {
	return append(binary.BigEndian.AppendUint32([]byte{headPrefix}, block.Number(id)), id[:]...)
}

// saveChainHead marks the new block as a leaf and unmarks its parent,
// which can no longer be one.
func saveChainHead(w kv.Putter, newHead, parent chain2.Bytes32) error {
	if !parent.IsZero() {
		if err := w.Delete(headKey(parent)); err != nil {
			return err
		}
	}
	return w.Put(headKey(newHead), nil)
}

func loadChainHeads(r kv.Getter, from uint32) ([]chain2.Bytes32, error) {
	iter := r.NewIterator(kv.Range{
		From: binary.BigEndian.AppendUint32([]byte{headPrefix}, from),
		To:   []byte{headPrefix + 1},
	})
	defer iter.Release()

	var heads []chain2.Bytes32
	for iter.Next() {
		heads = append(heads, chain2.BytesToBytes32(iter.Key()[5:]))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	// descending by number, newest heads first
	for i, j := 0, len(heads)-1; i < j; i, j = i+1, j-1 {
		heads[i], heads[j] = heads[j], heads[i]
	}
	return heads, nil
}
