// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package node

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chain2/chain2/api/utils"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
)

// Info static facts about the running node.
type Info struct {
	Version   string         `json:"version"`
	Network   string         `json:"network"`
	ChainTag  byte           `json:"chainTag"`
	GenesisID chain2.Bytes32 `json:"genesisID"`
}

type Node struct {
	repo *chain.Repository
	info Info
}

func New(repo *chain.Repository, info Info) *Node {
	return &Node{
		repo,
		info,
	}
}

// BestBlock the current head of the active chain.
type BestBlock struct {
	Number       uint32         `json:"number"`
	ID           chain2.Bytes32 `json:"id"`
	ChainWork    string         `json:"chainWork"`
	MaxBlockSize uint64         `json:"maxBlockSize"`
}

func (n *Node) handleNodeInfo(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, &n.info)
}

func (n *Node) handleBest(w http.ResponseWriter, _ *http.Request) error {
	best := n.repo.BestBlockSummary()
	return utils.WriteJSON(w, &BestBlock{
		Number:       best.Number(),
		ID:           best.ID(),
		ChainWork:    best.ChainWork.Hex(),
		MaxBlockSize: best.MaxBlockSize,
	})
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/info").
		Methods(http.MethodGet).
		Name("node_get_info").
		HandlerFunc(utils.WrapHandlerFunc(n.handleNodeInfo))
	sub.Path("/best").
		Methods(http.MethodGet).
		Name("node_get_best").
		HandlerFunc(utils.WrapHandlerFunc(n.handleBest))
}
