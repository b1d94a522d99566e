// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain2

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Constants shared by all networks.
const (
	// VersionTopBits packed top bits every block version must carry.
	VersionTopBits uint32 = 0x20000000
	// VersionTopMask mask to extract the packed top bits.
	VersionTopMask uint32 = 0xe0000000
	// MaxVersionBits number of version bits available for deployment signaling.
	MaxVersionBits = 29

	// MedianTimeSpan number of blocks a median-time-past is computed over.
	MedianTimeSpan = 11

	// MinSizeVote the smallest meaningful size-limit vote, in bytes (1MB).
	MinSizeVote uint64 = 1_000_000
)

// Deployment parameters of one bit-signaled consensus rule change.
type Deployment struct {
	// Bit the version bit miners set to signal support.
	Bit uint8 `yaml:"bit"`
	// StartTime median-time-past at which signal tallying begins.
	StartTime uint64 `yaml:"startTime"`
	// Timeout median-time-past after which the deployment fails if not locked in.
	Timeout uint64 `yaml:"timeout"`
	// WindowSize signal tallying window length in blocks.
	WindowSize uint32 `yaml:"windowSize"`
	// Threshold number of signaling blocks per window required to lock in.
	Threshold uint32 `yaml:"threshold"`
	// MinLockedBlocks minimum blocks to remain locked in before activation.
	MinLockedBlocks uint32 `yaml:"minLockedBlocks"`
	// MinLockedTime minimum seconds (median-time-past) to remain locked in.
	MinLockedTime uint64 `yaml:"minLockedTime"`
}

// Params parameters that influence chain consensus.
// They are fixed at node start and never change while a chain is evaluated.
type Params struct {
	// TargetSpacing expected seconds between blocks. Also the unit of the
	// late-block work penalty schedule.
	TargetSpacing uint64 `yaml:"targetSpacing"`

	// PowLimitBits the weakest allowed proof-of-work target, in compact form.
	PowLimitBits uint32 `yaml:"powLimitBits"`

	// FutureOffsetLimit max seconds a block timestamp may run ahead of the
	// local clock before the block is refused.
	FutureOffsetLimit uint64 `yaml:"futureOffsetLimit"`

	// SizeVoteInterval number of blocks per size-vote aggregation window.
	SizeVoteInterval uint32 `yaml:"sizeVoteInterval"`
	// SizeChangePosition one-based rank in the ascending sorted vote list at
	// which the lower (from the start) and raise (from the end) candidates
	// are read. 1512 of 2016 puts both at the 75th percentile.
	SizeChangePosition uint32 `yaml:"sizeChangePosition"`
	// InitialMaxBlockSize the size ceiling in force before any vote window closed.
	InitialMaxBlockSize uint64 `yaml:"initialMaxBlockSize"`

	// Deployments tracked bit-signaled rule changes, keyed by name.
	Deployments map[string]Deployment `yaml:"deployments"`
}

// Mainnet returns consensus params of the main network.
func Mainnet() Params {
	return Params{
		TargetSpacing:       600,
		PowLimitBits:        0x1d00ffff,
		FutureOffsetLimit:   7200,
		SizeVoteInterval:    2016,
		SizeChangePosition:  1512,
		InitialMaxBlockSize: 8_000_000,
		Deployments: map[string]Deployment{
			"checkdatasig": {
				Bit:             0,
				StartTime:       1_542_300_000,
				Timeout:         math.MaxUint64,
				WindowSize:      2016,
				Threshold:       1512,
				MinLockedBlocks: 2016,
				MinLockedTime:   0,
			},
		},
	}
}

// Devnet returns consensus params for local development and tests.
// The vote window is short so retarget behavior is reachable quickly.
func Devnet() Params {
	return Params{
		TargetSpacing:       600,
		PowLimitBits:        0x207fffff,
		FutureOffsetLimit:   100_000 * 600,
		SizeVoteInterval:    144,
		SizeChangePosition:  108,
		InitialMaxBlockSize: 8_000_000,
		Deployments: map[string]Deployment{
			"checkdatasig": {
				Bit:             0,
				StartTime:       0,
				Timeout:         math.MaxUint64,
				WindowSize:      144,
				Threshold:       108,
				MinLockedBlocks: 0,
				MinLockedTime:   0,
			},
			"testdummy": {
				Bit:             28,
				StartTime:       0,
				Timeout:         math.MaxUint64,
				WindowSize:      144,
				Threshold:       108,
				MinLockedBlocks: 144,
				MinLockedTime:   0,
			},
		},
	}
}

// LoadParams decodes params from YAML and validates them.
func LoadParams(r io.Reader) (Params, error) {
	var p Params
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Params{}, errors.Wrap(err, "decode params")
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks params for internal consistency.
func (p *Params) Validate() error {
	if p.TargetSpacing == 0 {
		return errors.New("target spacing must be > 0")
	}
	if p.FutureOffsetLimit == 0 {
		return errors.New("future offset limit must be > 0")
	}
	if p.SizeVoteInterval == 0 {
		return errors.New("size vote interval must be > 0")
	}
	if p.SizeChangePosition == 0 || p.SizeChangePosition > p.SizeVoteInterval {
		return errors.New("size change position out of vote interval")
	}
	if p.InitialMaxBlockSize < MinSizeVote {
		return errors.New("initial max block size below the minimal vote")
	}
	for name, d := range p.Deployments {
		if d.Bit >= MaxVersionBits {
			return errors.Errorf("deployment %q: bit %d out of range", name, d.Bit)
		}
		if d.WindowSize == 0 {
			return errors.Errorf("deployment %q: window size must be > 0", name)
		}
		if d.Threshold == 0 || d.Threshold > d.WindowSize {
			return errors.Errorf("deployment %q: threshold out of window", name)
		}
		for other, o := range p.Deployments {
			if other != name && o.Bit == d.Bit {
				return errors.Errorf("deployments %q and %q share bit %d", name, other, d.Bit)
			}
		}
	}
	return nil
}
