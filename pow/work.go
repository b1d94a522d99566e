// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

// Package pow converts compact proof-of-work targets into work values and
// applies the late-block work penalty that makes deep reorganizations
// expensive for an attacker without blocking genuinely stronger forks.
package pow

import "github.com/holiman/uint256"

// CompactToTarget expands the compact target representation.
// It reports whether the encoding is negative or overflows 256 bits;
// either makes the target unusable for work computation.
func CompactToTarget(bits uint32) (target *uint256.Int, negative, overflow bool) {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff

	negative = bits&0x00800000 != 0 && mantissa != 0
	overflow = mantissa != 0 && (exponent > 34 ||
		(mantissa > 0xff && exponent > 33) ||
		(mantissa > 0xffff && exponent > 32))

	target = uint256.NewInt(uint64(mantissa))
	if exponent <= 3 {
		target.Rsh(target, 8*(3-uint(exponent)))
	} else {
		target.Lsh(target, 8*(uint(exponent)-3))
	}
	return
}

// WorkFromBits computes the expected number of hashes needed to meet the
// target encoded by bits: 2**256 / (target+1). Since 2**256 doesn't fit,
// it is computed as ~target / (target+1) + 1. Returns zero for targets
// that are negative, zero or overflowing.
func WorkFromBits(bits uint32) *uint256.Int {
	target, negative, overflow := CompactToTarget(bits)
	if negative || overflow || target.IsZero() {
		return new(uint256.Int)
	}

	work := new(uint256.Int).Not(target)
	denom := new(uint256.Int).AddUint64(target, 1)
	work.Div(work, denom)
	return work.AddUint64(work, 1)
}

// maxPenaltyShift caps the penalty shift; beyond it any work value
// right-shifts to zero anyway.
const maxPenaltyShift = 256

// PenaltyShift returns how many times a late block's work is halved.
// Lateness is quantized into target spacings; each further halving takes
// one more spacing than the previous one, so the divisor doubles after
// 1 spacing, again after 2 more, then 3 more, and so on:
//
//	0 spacings late     -> full weight
//	1 spacing           -> 1/2
//	2..3 spacings       -> 1/4
//	4..6 spacings       -> 1/8
//	7..10 spacings      -> 1/16 ...
func PenaltyShift(late, spacing uint64) uint {
	if spacing == 0 || late < spacing {
		return 0
	}
	steps := late / spacing

	var shift, tri uint64
	for tri < steps {
		shift++
		if shift >= maxPenaltyShift {
			return maxPenaltyShift
		}
		tri += shift
	}
	return uint(shift)
}

// PenalizedWork discounts a fork block's work by how late the local node
// first saw it, relative to the timestamp of the first competing block on
// the active chain. A block received no later than the reference keeps its
// full weight; a sufficiently late block's work rounds down to zero.
func PenalizedWork(work *uint256.Int, receivedTime, refTime, spacing uint64) *uint256.Int {
	if refTime == 0 || receivedTime <= refTime {
		return new(uint256.Int).Set(work)
	}
	shift := PenaltyShift(receivedTime-refTime, spacing)
	if shift >= maxPenaltyShift {
		return new(uint256.Int)
	}
	return new(uint256.Int).Rsh(work, shift)
}
