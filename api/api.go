// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/chain2/chain2/api/blocks"
	"github.com/chain2/chain2/api/deployments"
	"github.com/chain2/chain2/api/node"
	"github.com/chain2/chain2/api/subscriptions"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/consensus"
	"github.com/chain2/chain2/log"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	Version         string
	Network         string
	AllowedOrigins  string
	PprofOn         bool
	EnableReqLogger bool
	EnableMetrics   bool
}

// New return api router
func New(
	repo *chain.Repository,
	submitter blocks.Submitter,
	tracker *consensus.DeploymentTracker,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	blocks.New(repo, submitter).
		Mount(router, "/blocks")
	deployments.New(repo, tracker).
		Mount(router, "/deployments")
	node.New(repo, node.Info{
		Version:   opts.Version,
		Network:   opts.Network,
		ChainTag:  repo.ChainTag(),
		GenesisID: repo.GenesisBlock().Header().ID(),
	}).Mount(router, "/node")
	subs := subscriptions.New(repo, origins)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "x-genesis-id"}),
		handlers.ExposedHeaders([]string{"x-genesis-id"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
