// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package block

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/chain2/chain2/chain2"
)

// Header contains all consensus-relevant facts about a block, except its body.
// It's immutable.
type Header struct {
	body headerBody

	cache struct {
		id atomic.Value
	}
}

// headerBody body of header
type headerBody struct {
	ParentID  chain2.Bytes32
	Timestamp uint64
	Version   uint32
	Bits      uint32
	Nonce     uint64
	TxsRoot   chain2.Bytes32
}

// ParentID returns id of parent block.
func (h *Header) ParentID() chain2.Bytes32 {
	return h.body.ParentID
}

// Number returns sequential number of this block.
func (h *Header) Number() uint32 {
	// inferred from parent id
	if h.body.ParentID.IsZero() {
		return 0
	}
	return Number(h.body.ParentID) + 1
}

// Timestamp returns timestamp of this block.
func (h *Header) Timestamp() uint64 {
	return h.body.Timestamp
}

// Version returns the 32-bit version word. The top bits are a packed marker,
// the rest is a per-deployment signaling bitfield.
func (h *Header) Version() uint32 {
	return h.body.Version
}

// SignalsBit returns whether the version signals the given deployment bit.
// A version without the packed top bits carries no valid signals.
func (h *Header) SignalsBit(bit uint8) bool {
	if h.body.Version&chain2.VersionTopMask != chain2.VersionTopBits {
		return false
	}
	return h.body.Version&(1<<bit) != 0
}

// Bits returns the compact form of the proof-of-work target.
func (h *Header) Bits() uint32 {
	return h.body.Bits
}

// Nonce returns the proof-of-work nonce.
func (h *Header) Nonce() uint64 {
	return h.body.Nonce
}

// TxsRoot returns merkle root of txs contained in this block.
func (h *Header) TxsRoot() chain2.Bytes32 {
	return h.body.TxsRoot
}

// ID computes id of block.
// The block ID is defined as: blockNumber + hash(header fields)[4:].
func (h *Header) ID() (id chain2.Bytes32) {
	if cached := h.cache.id.Load(); cached != nil {
		return cached.(chain2.Bytes32)
	}
	defer func() {
		// overwrite first 4 bytes of block hash to block number.
		binary.BigEndian.PutUint32(id[:], h.Number())
		h.cache.id.Store(id)
	}()

	id = chain2.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, &h.body)
	})
	return
}

// EncodeRLP implements rlp.Encoder
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &h.body)
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var body headerBody

	if err := s.Decode(&body); err != nil {
		return err
	}
	*h = Header{body: body}
	return nil
}

func (h *Header) String() string {
	return fmt.Sprintf(`Header(%v):
	Number:     %v
	ParentID:   %v
	Timestamp:  %v
	Version:    0x%08x
	Bits:       0x%08x
	Nonce:      %v
	TxsRoot:    %v`, h.ID(), h.Number(), h.body.ParentID, h.body.Timestamp,
		h.body.Version, h.body.Bits, h.body.Nonce, h.body.TxsRoot)
}

// Number extract block number from block id.
func Number(blockID chain2.Bytes32) uint32 {
	// first 4 bytes are over written by block number (big endian).
	return binary.BigEndian.Uint32(blockID[:])
}
