// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package blocks

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/chain2/chain2/api/utils"
	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/consensus"
)

// Submitter accepts decoded blocks into the chain.
type Submitter interface {
	ProcessBlock(blk *block.Block) error
}

type Blocks struct {
	repo      *chain.Repository
	submitter Submitter
}

func New(repo *chain.Repository, submitter Submitter) *Blocks {
	return &Blocks{
		repo,
		submitter,
	}
}

func (b *Blocks) handleGetBlock(w http.ResponseWriter, req *http.Request) error {
	revision, err := utils.ParseRevision(mux.Vars(req)["revision"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "revision"))
	}

	summary, err := utils.GetSummary(revision, b.repo)
	if err != nil {
		if b.repo.IsNotFound(err) {
			return utils.WriteJSON(w, nil)
		}
		return err
	}

	isTrunk, err := b.isTrunk(summary)
	if err != nil {
		return err
	}

	return utils.WriteJSON(w, &JSONCollapsedBlock{
		buildJSONBlockSummary(summary, isTrunk),
		summary.Txs,
	})
}

func (b *Blocks) handleSubmitBlock(w http.ResponseWriter, req *http.Request) error {
	var raw *RawBlock
	if err := utils.ParseJSON(req.Body, &raw); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	data, err := hexutil.Decode(raw.Raw)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "raw"))
	}
	var blk block.Block
	if err := rlp.DecodeBytes(data, &blk); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "raw"))
	}

	if err := b.submitter.ProcessBlock(&blk); err != nil {
		if consensus.IsParentMissing(err) {
			return utils.BadRequest(errors.WithMessage(err, "block"))
		}
		if consensus.IsCritical(err) {
			return utils.Forbidden(errors.New(consensus.RejectReason(err)))
		}
		return err
	}
	return utils.WriteJSON(w, map[string]string{
		"id": blk.Header().ID().String(),
	})
}

func (b *Blocks) isTrunk(summary *chain.BlockSummary) (bool, error) {
	idByNum, err := b.repo.GetBlockIDByNumber(summary.Number())
	if err != nil {
		if b.repo.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return summary.ID() == idByNum, nil
}

func (b *Blocks) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodPost).
		Name("blocks_submit_block").
		HandlerFunc(utils.WrapHandlerFunc(b.handleSubmitBlock))
	sub.Path("/{revision}").
		Methods(http.MethodGet).
		Name("blocks_get_block").
		HandlerFunc(utils.WrapHandlerFunc(b.handleGetBlock))
}
