// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package main

import (
	"context"
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/chain2/chain2/api"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/consensus"
	"github.com/chain2/chain2/log"
	"github.com/chain2/chain2/metrics"
	"github.com/chain2/chain2/node"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "chain2",
		Usage:     "Node of the chain2 network",
		Copyright: "2020 The chain2 developers",
		Flags: []cli.Flag{
			networkFlag,
			dataDirFlag,
			paramsFlag,
			apiAddrFlag,
			apiCorsFlag,
			enableAPILogsFlag,
			verbosityFlag,
			jsonLogsFlag,
			pprofFlag,
			cacheFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	initLogger(int(ctx.Uint64(verbosityFlag.Name)), ctx.Bool(jsonLogsFlag.Name))

	gene, params, network, err := selectNetwork(ctx)
	if err != nil {
		return err
	}

	checkClockOffset(params.TargetSpacing)

	instanceDir, err := makeInstanceDir(ctx, gene)
	if err != nil {
		return err
	}

	mainDB, err := openMainDB(ctx, instanceDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	repo, err := chain.NewRepository(mainDB, gene, params.InitialMaxBlockSize)
	if err != nil {
		return err
	}

	cons := consensus.New(repo, &params)
	nd := node.New(repo, cons)

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return fmt.Errorf("unable to start metrics server - %w", err)
		}
		logger.Info("metrics server started", "url", url)
		defer func() { logger.Info("stopping metrics server..."); closeFunc() }()
	}

	apiHandler, apiCloser := api.New(
		repo,
		nd,
		cons.Deployments(),
		api.Options{
			Version:         fullVersion(),
			Network:         network,
			AllowedOrigins:  ctx.String(apiCorsFlag.Name),
			PprofOn:         ctx.Bool(pprofFlag.Name),
			EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
			EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		},
	)
	defer apiCloser()

	apiURL, srvCloser, err := startAPIServer(ctx.String(apiAddrFlag.Name), apiHandler)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); srvCloser(context.Background()) }()

	printStartupMessage(network, repo, instanceDir, apiURL)

	return nd.Run(exitSignal)
}
