// Command sporaminer runs the SPoRA mining core against its reference
// collaborator implementations. CLI surface is intentionally minimal —
// spec.md names "CLI" and "packaging" as out-of-scope external
// concerns — this exists only so the module is a runnable program.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/holiman/uint256"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/weavemesh/spora-miner/bds"
	"github.com/weavemesh/spora-miner/chunkstore"
	"github.com/weavemesh/spora-miner/config"
	"github.com/weavemesh/spora-miner/logging"
	"github.com/weavemesh/spora-miner/poa"
	"github.com/weavemesh/spora-miner/randomx"
	"github.com/weavemesh/spora-miner/retarget"
	"github.com/weavemesh/spora-miner/spora"
	"github.com/weavemesh/spora-miner/txpool"
	"github.com/weavemesh/spora-miner/wallet"
)

var gitCommit = "unknown"

func main() {
	app := cli.NewApp()
	app.Name = "sporaminer"
	app.Usage = "SPoRA mining core reference runner"
	app.Version = gitCommit
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to config file"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	color.Cyan("sporaminer %s starting", gitCommit)
	log.Infow("sporaminer starting", "git_commit", gitCommit)

	rewardAddrBytes, err := hex.DecodeString(cfg.Mining.RewardAddressHex)
	if err != nil || len(rewardAddrBytes) != 32 {
		return fmt.Errorf("mining.reward_address must be a 32-byte hex string")
	}
	var rewardAddr [32]byte
	copy(rewardAddr[:], rewardAddrBytes)

	store, err := chunkstore.Open(cfg.Storage.ChunkDBPath, cfg.Storage.ChunkCacheMiB<<20, log)
	if err != nil {
		return fmt.Errorf("open chunk store: %w", err)
	}
	defer store.Close()

	pool, err := txpool.NewPool(1 << 16)
	if err != nil {
		return fmt.Errorf("init tx pool: %w", err)
	}
	walletStore := wallet.NewStore(spora.Hash256{}, spora.WalletMap{})
	retargetModule := retarget.New()
	poaModule := poa.New(store)

	engine := randomx.NewEngine()
	engine.InitFast()

	workers := cfg.Workers
	controllerCfg := spora.ControllerConfig{
		Stage1Workers:   workers.Stage1,
		Stage2Workers:   workers.Stage2,
		IOWorkers:       workers.IO,
		HashIterations:  workers.HashBatch,
		RefreshInterval: cfg.Mining.RefreshInterval,
	}
	if workers.AutoFromCPU {
		controllerCfg = spora.DefaultControllerConfig(runtime.NumCPU())
	}

	controller, err := spora.NewController(controllerCfg, spora.ControllerDeps{
		Engine:     engine,
		ChunkStore: store,
		PoA:        poaModule,
		Refresher: spora.RefresherDeps{
			Txs:      pool,
			Wallets:  walletStore,
			Retarget: retargetModule,
			BDS:      bds.New(),
		},
	}, log)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infow("shutdown signal received")
		cancel()
	}()

	genesis := &spora.CandidateBlock{Height: 0, Diff: newZeroDiff()}
	_, err = controller.RunRound(runCtx, spora.RoundInput{
		Parent:        genesis,
		UpperBound:    cfg.Mining.UpperBoundDepth * spora.ChunkSize,
		BlockIndex:    nil,
		RewardAddress: rewardAddr,
	})
	if err != nil && runCtx.Err() == nil {
		log.Errorw("mining round ended with error", "err", err)
		return err
	}
	return nil
}

func newZeroDiff() *uint256.Int {
	return new(uint256.Int)
}
