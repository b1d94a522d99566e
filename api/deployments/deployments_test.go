// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package deployments

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
	"github.com/chain2/chain2/consensus"
	"github.com/chain2/chain2/genesis"
	"github.com/chain2/chain2/lvldb"
)

func TestGetStatus(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	gene := genesis.Devnet()
	params := chain2.Devnet()
	repo, err := chain.NewRepository(db, gene, params.InitialMaxBlockSize)
	require.NoError(t, err)

	cons := consensus.New(repo, &params)
	router := mux.NewRouter()
	New(repo, cons.Deployments()).Mount(router, "/deployments")
	ts := httptest.NewServer(router)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/deployments")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	require.Equal(t, http.StatusOK, res.StatusCode)

	var statuses []consensus.DeploymentStatus
	require.NoError(t, json.Unmarshal(body, &statuses))
	require.Equal(t, 2, len(statuses))

	// sorted by name, all still in the genesis window
	assert.Equal(t, "checkdatasig", statuses[0].Name)
	assert.Equal(t, "testdummy", statuses[1].Name)
	for _, s := range statuses {
		assert.Equal(t, "defined", s.Status)
	}

	res, err = http.Get(ts.URL + "/deployments?revision=xyz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
