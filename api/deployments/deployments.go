// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package deployments

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/chain2/chain2/api/utils"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/consensus"
)

type Deployments struct {
	repo    *chain.Repository
	tracker *consensus.DeploymentTracker
}

func New(repo *chain.Repository, tracker *consensus.DeploymentTracker) *Deployments {
	return &Deployments{
		repo,
		tracker,
	}
}

// handleGetStatus reports the state every tracked deployment would have in
// a block built on top of the given revision (the best block by default).
func (d *Deployments) handleGetStatus(w http.ResponseWriter, req *http.Request) error {
	revision, err := utils.ParseRevision(req.URL.Query().Get("revision"))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "revision"))
	}
	summary, err := utils.GetSummary(revision, d.repo)
	if err != nil {
		if d.repo.IsNotFound(err) {
			return utils.WriteJSON(w, nil)
		}
		return err
	}

	statuses, err := d.tracker.Status(summary.ID())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, statuses)
}

func (d *Deployments) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodGet).
		Name("deployments_get_status").
		HandlerFunc(utils.WrapHandlerFunc(d.handleGetStatus))
}
