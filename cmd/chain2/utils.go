// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/beevik/ntp"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/chain2/chain2/block"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/genesis"
	"github.com/chain2/chain2/log"
	"github.com/chain2/chain2/lvldb"
	"github.com/chain2/chain2/metrics"
)

func initLogger(verbosity int, jsonLogs bool) {
	level := new(slog.LevelVar)
	level.Set(log.FromLegacyLevel(verbosity))

	output := io.Writer(os.Stdout)
	var handler slog.Handler
	if jsonLogs {
		handler = log.JSONHandlerWithLevel(output, level)
	} else {
		useColor := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandlerWithLevel(output, level, useColor)
	}
	log.SetRootHandler(handler)
}

// selectNetwork resolves the network flag into a genesis block and its
// consensus params, applying the params file override when given.
func selectNetwork(ctx *cli.Context) (*block.Block, chain2.Params, string, error) {
	var (
		gene   *block.Block
		params chain2.Params
	)
	network := ctx.String(networkFlag.Name)
	switch network {
	case "main":
		gene = genesis.Mainnet()
		params = chain2.Mainnet()
	case "dev":
		gene = genesis.Devnet()
		params = chain2.Devnet()
	default:
		return nil, chain2.Params{}, "", errors.Errorf("unrecognized network: %q", network)
	}

	if path := ctx.String(paramsFlag.Name); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, chain2.Params{}, "", errors.Wrap(err, "open params file")
		}
		defer file.Close()
		if params, err = chain2.LoadParams(file); err != nil {
			return nil, chain2.Params{}, "", err
		}
	}
	return gene, params, network, nil
}

// checkClockOffset warns when the local clock drifts too far to judge
// block timestamps reliably.
func checkClockOffset(targetSpacing uint64) {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	limit := time.Duration(targetSpacing) * time.Second / 10
	if resp.ClockOffset > limit || resp.ClockOffset < -limit {
		logger.Warn("clock offset detected", "offset", resp.ClockOffset)
	}
}

func makeInstanceDir(ctx *cli.Context, gene *block.Block) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", errors.Errorf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}

	geneID := gene.Header().ID()
	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", geneID.Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		return "", errors.Wrapf(err, "create instance dir at '%v'", instanceDir)
	}
	return instanceDir, nil
}

func openMainDB(ctx *cli.Context, instanceDir string) (*lvldb.LevelDB, error) {
	cacheMB := int(ctx.Uint64(cacheFlag.Name))
	dir := filepath.Join(instanceDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: 512,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database at '%v'", dir)
	}
	return db, nil
}

func startAPIServer(addr string, handler http.HandlerFunc) (string, func(context.Context), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr '%v'", addr)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		srv.Serve(listener)
	}()
	return "http://" + listener.Addr().String() + "/", func(ctx context.Context) { srv.Shutdown(ctx) }, nil
}

func startMetricsServer(addr string) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen metrics addr '%v'", addr)
	}

	router := http.NewServeMux()
	router.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{Handler: router}
	go func() {
		srv.Serve(listener)
	}()
	return "http://" + listener.Addr().String() + "/metrics", func() { srv.Close() }, nil
}

func printStartupMessage(network string, repo *chain.Repository, instanceDir, apiURL string) {
	best := repo.BestBlockSummary()

	fmt.Printf(`Starting %v
    Network      [ %v ]
    Chain tag    [ %#x ]
    Best block   [ %v #%v @%v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		"chain2 "+fullVersion(),
		network,
		repo.ChainTag(),
		best.ID(), best.Number(), time.Unix(int64(best.Header.Timestamp()), 0),
		instanceDir,
		apiURL,
	)
}

// handleExitSignal returns a context canceled on interrupt or terminate.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "org.chain2")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "org.chain2")
		default:
			return filepath.Join(home, ".org.chain2")
		}
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
