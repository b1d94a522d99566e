// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package consensus

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	errKnownBlock    = errors.New("block already in the chain")
	errParentMissing = errors.New("parent block is missing")
)

// IsKnownBlock returns if the error indicates the block was already in the chain.
func IsKnownBlock(err error) bool {
	return err == errKnownBlock
}

// IsParentMissing returns if the error indicates the parent of the block is missing.
func IsParentMissing(err error) bool {
	return err == errParentMissing
}

// consensusError is the error type for blocks that violate a consensus
// rule. The message starts with a short machine-readable reason code,
// followed by details.
type consensusError string

func (err consensusError) Error() string {
	return string(err)
}

// IsCritical returns if the error is consensus related, i.e. the block is
// invalid and must not be retried.
func IsCritical(err error) bool {
	_, ok := err.(consensusError)
	return ok
}

// RejectReason extracts the reason code from a consensus error, or an
// empty string for any other error.
func RejectReason(err error) string {
	cerr, ok := err.(consensusError)
	if !ok {
		return ""
	}
	msg := string(cerr)
	if i := strings.IndexByte(msg, ':'); i > 0 {
		return msg[:i]
	}
	return msg
}
