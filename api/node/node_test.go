// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package node

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/genesis"
	"github.com/chain2/chain2/lvldb"
)

func TestNodeEndpoints(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	gene := genesis.Devnet()
	repo, err := chain.NewRepository(db, gene, chain2.Devnet().InitialMaxBlockSize)
	require.NoError(t, err)

	router := mux.NewRouter()
	New(repo, Info{
		Version:   "1.0.0",
		Network:   "dev",
		ChainTag:  repo.ChainTag(),
		GenesisID: gene.Header().ID(),
	}).Mount(router, "/node")
	ts := httptest.NewServer(router)
	defer ts.Close()

	get := func(path string, out interface{}) {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		require.NoError(t, res.Body.Close())
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.NoError(t, json.Unmarshal(body, out))
	}

	var info Info
	get("/node/info", &info)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "dev", info.Network)
	assert.Equal(t, repo.ChainTag(), info.ChainTag)
	assert.Equal(t, gene.Header().ID(), info.GenesisID)

	var best BestBlock
	get("/node/best", &best)
	assert.Equal(t, uint32(0), best.Number)
	assert.Equal(t, gene.Header().ID(), best.ID)
	assert.Equal(t, chain2.Devnet().InitialMaxBlockSize, best.MaxBlockSize)
}
