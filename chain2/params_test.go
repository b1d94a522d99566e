// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain2

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinParams(t *testing.T) {
	mainnet := Mainnet()
	assert.Nil(t, mainnet.Validate())

	devnet := Devnet()
	assert.Nil(t, devnet.Validate())
}

func TestLoadParams(t *testing.T) {
	doc := `
targetSpacing: 600
powLimitBits: 0x207fffff
futureOffsetLimit: 7200
sizeVoteInterval: 2016
sizeChangePosition: 1512
initialMaxBlockSize: 8000000
deployments:
  testdummy:
    bit: 28
    startTime: 1000
    timeout: 2000
    windowSize: 144
    threshold: 108
    minLockedBlocks: 144
    minLockedTime: 0
`
	params, err := LoadParams(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, uint64(600), params.TargetSpacing)
	assert.Equal(t, uint32(0x207fffff), params.PowLimitBits)
	assert.Equal(t, uint8(28), params.Deployments["testdummy"].Bit)
	assert.Equal(t, uint32(144), params.Deployments["testdummy"].WindowSize)
}

func TestLoadParamsUnknownField(t *testing.T) {
	doc := `
targetSpacing: 600
bogus: 1
`
	_, err := LoadParams(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestParamsValidate(t *testing.T) {
	base := func() Params {
		p := Devnet()
		return p
	}

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero target spacing", func(p *Params) { p.TargetSpacing = 0 }},
		{"zero future offset", func(p *Params) { p.FutureOffsetLimit = 0 }},
		{"zero vote interval", func(p *Params) { p.SizeVoteInterval = 0 }},
		{"change position out of window", func(p *Params) { p.SizeChangePosition = p.SizeVoteInterval + 1 }},
		{"initial size below minimal vote", func(p *Params) { p.InitialMaxBlockSize = MinSizeVote - 1 }},
		{"deployment bit out of range", func(p *Params) {
			d := p.Deployments["testdummy"]
			d.Bit = MaxVersionBits
			p.Deployments["testdummy"] = d
		}},
		{"deployment threshold out of window", func(p *Params) {
			d := p.Deployments["testdummy"]
			d.Threshold = d.WindowSize + 1
			p.Deployments["testdummy"] = d
		}},
		{"deployment zero window", func(p *Params) {
			d := p.Deployments["testdummy"]
			d.WindowSize = 0
			p.Deployments["testdummy"] = d
		}},
		{"duplicate deployment bit", func(p *Params) {
			d := p.Deployments["testdummy"]
			d.Bit = p.Deployments["checkdatasig"].Bit
			p.Deployments["testdummy"] = d
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
