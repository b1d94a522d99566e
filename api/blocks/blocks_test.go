// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package blocks

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/consensus"
	"github.com/chain2/chain2/genesis"
	"github.com/chain2/chain2/lvldb"
	"github.com/chain2/chain2/node"
	"github.com/chain2/chain2/tx"
)

func newTestServer(t *testing.T) (*httptest.Server, *chain.Repository, *block.Block) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	gene := genesis.Devnet()
	params := chain2.Devnet()
	repo, err := chain.NewRepository(db, gene, params.InitialMaxBlockSize)
	require.NoError(t, err)

	nd := node.New(repo, consensus.New(repo, &params))

	router := mux.NewRouter()
	New(repo, nd).Mount(router, "/blocks")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, repo, gene
}

func nextBlock(parent *block.Block, ts uint64, coinbase string) *block.Block {
	return new(block.Builder).
		ParentID(parent.Header().ID()).
		Timestamp(ts).
		Version(chain2.VersionTopBits).
		Bits(chain2.Devnet().PowLimitBits).
		Transaction(tx.New([]byte(coinbase), nil)).
		Build()
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	return body, res.StatusCode
}

func httpPost(t *testing.T, url string, obj interface{}) ([]byte, int) {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	return body, res.StatusCode
}

func TestGetBlock(t *testing.T) {
	ts, repo, gene := newTestServer(t)

	b1 := nextBlock(gene, gene.Header().Timestamp()+600, "/BIP100/B2/")
	_, err := repo.AddBlock(b1, b1.Header().Timestamp(), 2_000_000, 8_000_000, true)
	require.NoError(t, err)

	for _, revision := range []string{"best", "1", b1.Header().ID().String()} {
		body, status := httpGet(t, ts.URL+"/blocks/"+revision)
		require.Equal(t, http.StatusOK, status, "revision %q", revision)

		var got JSONCollapsedBlock
		require.NoError(t, json.Unmarshal(body, &got), "revision %q", revision)
		assert.Equal(t, b1.Header().ID(), got.ID)
		assert.Equal(t, uint32(1), got.Number)
		assert.Equal(t, uint64(2_000_000), got.SizeVote)
		assert.Equal(t, uint64(8_000_000), got.MaxBlockSize)
		assert.True(t, got.IsTrunk)
		assert.Equal(t, []chain2.Bytes32{b1.Transactions()[0].ID()}, got.Transactions)
	}

	// unknown number resolves to null
	body, status := httpGet(t, ts.URL+"/blocks/7")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", string(bytes.TrimSpace(body)))

	// side blocks report isTrunk=false
	side := nextBlock(gene, gene.Header().Timestamp()+601, "side")
	_, err = repo.AddBlock(side, side.Header().Timestamp(), 0, 8_000_000, false)
	require.NoError(t, err)
	body, status = httpGet(t, ts.URL+"/blocks/"+side.Header().ID().String())
	require.Equal(t, http.StatusOK, status)
	var got JSONCollapsedBlock
	require.NoError(t, json.Unmarshal(body, &got))
	assert.False(t, got.IsTrunk)

	_, status = httpGet(t, ts.URL+"/blocks/xyz")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubmitBlock(t *testing.T) {
	ts, repo, gene := newTestServer(t)

	b1 := nextBlock(gene, gene.Header().Timestamp()+600, "/EB8/")
	raw, err := rlp.EncodeToBytes(b1)
	require.NoError(t, err)

	body, status := httpPost(t, ts.URL+"/blocks", &RawBlock{Raw: hexutil.Encode(raw)})
	require.Equal(t, http.StatusOK, status)

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, b1.Header().ID().String(), got["id"])
	assert.Equal(t, b1.Header().ID(), repo.BestBlockSummary().ID())

	// consensus-invalid block is forbidden, with the reject reason
	bad := nextBlock(gene, gene.Header().Timestamp(), "x") // not after parent
	raw, err = rlp.EncodeToBytes(bad)
	require.NoError(t, err)
	body, status = httpPost(t, ts.URL+"/blocks", &RawBlock{Raw: hexutil.Encode(raw)})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(body), "time-too-old")

	// orphan and garbage are bad requests
	b3 := nextBlock(b1, b1.Header().Timestamp()+1200, "x")
	b4 := nextBlock(b3, b3.Header().Timestamp()+600, "x")
	raw, err = rlp.EncodeToBytes(b4)
	require.NoError(t, err)
	_, status = httpPost(t, ts.URL+"/blocks", &RawBlock{Raw: hexutil.Encode(raw)})
	assert.Equal(t, http.StatusBadRequest, status)

	_, status = httpPost(t, ts.URL+"/blocks", &RawBlock{Raw: "0xbadc0de"})
	assert.Equal(t, http.StatusBadRequest, status)
}
