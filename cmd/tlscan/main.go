// Copyright 2024 The tlscan Authors
// This file is part of the tlscan library.
//
// The tlscan library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tlscan library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tlscan library. If not, see <http://www.gnu.org/licenses/>.

// Command tlscan is the block/contract inspector controller (component
// C7): it partitions a block range (or an already-discovered contract
// list) across a pool of worker processes, one RPC endpoint per
// worker, and waits for them to commit. A worker is this very binary,
// re-invoked with the hidden "worker" subcommand; see workerCommand.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"

	"github.com/tlscan/tlscan/cmd/utils"
	"github.com/tlscan/tlscan/config"
	"github.com/tlscan/tlscan/inspector"
	"github.com/tlscan/tlscan/inspector/controller"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/params"
	"github.com/tlscan/tlscan/storage"
)

var (
	afterFlag = cli.IntFlag{Name: "after", Usage: "inclusive lower block bound"}
	beforeFlag = cli.IntFlag{Name: "before", Usage: "exclusive upper block bound"}
	paraFlag = cli.IntFlag{Name: "para", Usage: "number of worker processes", Value: runtime.NumCPU()}
	manyContractsFlag = cli.BoolFlag{Name: "many-contracts", Usage: "run the contract-info inspector over contracts already discovered in [after,before)"}
	manyBlocksFlag = cli.BoolFlag{Name: "many-blocks", Usage: "run the block-economics inspector instead of the TLSC inspector"}
	configFlag = cli.StringFlag{Name: "config", Usage: "path to the TOML config file", Value: "tlscan.toml"}
	dbDSNFlag = cli.StringFlag{Name: "db-dsn", Usage: "MySQL data source name", EnvVar: "TLSCAN_DB_DSN"}
	batchSizeFlag = cli.IntFlag{Name: "batch-size", Usage: "blocks (or contracts) per sub-batch; 0 selects the kind's default"}
)

func main() {
	app := cli.NewApp()
	app.Name = "tlscan"
	app.Usage = "discover time-locked smart contracts and summarize block economics over a block range"
	app.Flags = []cli.Flag{afterFlag, beforeFlag, paraFlag, manyContractsFlag, manyBlocksFlag, configFlag, dbDSNFlag, batchSizeFlag}
	app.Action = runController
	app.Commands = []cli.Command{workerCommand}

	if err := app.Run(os.Args); err != nil {
		utils.Fatalf("%v", err)
	}
}

// pickKind resolves the mutually-exclusive --many-contracts/--many-blocks
// pair to an inspector.Kind, defaulting to the TLSC inspector per
// spec.md §6.
func pickKind(ctx *cli.Context) (inspector.Kind, error) {
	manyContracts := ctx.Bool(manyContractsFlag.Name)
	manyBlocks := ctx.Bool(manyBlocksFlag.Name)
	if manyContracts && manyBlocks {
		return 0, fmt.Errorf("--many-contracts and --many-blocks are mutually exclusive")
	}
	switch {
	case manyContracts:
		return inspector.KindContract, nil
	case manyBlocks:
		return inspector.KindBlock, nil
	default:
		return inspector.KindTLSC, nil
	}
}

func validateRange(after, before, para int) error {
	if after < 0 || before < 0 {
		return fmt.Errorf("--after and --before must be non-negative")
	}
	if after >= before {
		return fmt.Errorf("--after (%d) must be less than --before (%d)", after, before)
	}
	if para <= 0 {
		return fmt.Errorf("--para must be greater than zero")
	}
	return nil
}

func runController(ctx *cli.Context) error {
	after, before, para := ctx.Int(afterFlag.Name), ctx.Int(beforeFlag.Name), ctx.Int(paraFlag.Name)
	if err := validateRange(after, before, para); err != nil {
		return err
	}
	kind, err := pickKind(ctx)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("tlscan: %w", err)
	}
	endpoints, err := controller.LoadEndpoints(cfg.Paths.RPCHostsIPPath)
	if err != nil {
		return fmt.Errorf("tlscan: %w", err)
	}

	runCtx, stop := utils.InterruptContext(context.Background())
	defer stop()

	logger, closer, err := log.NewWorkerLogger("controller", "controller", cfg.Logs.LogsPath, log.LevelInfo)
	if err != nil {
		return fmt.Errorf("tlscan: %w", err)
	}
	defer closer.Close()

	dsn := ctx.String(dbDSNFlag.Name)
	gateway, err := storage.Open(dsn, 4, 2)
	if err != nil {
		return fmt.Errorf("tlscan: %w", err)
	}
	defer gateway.Close()

	ctrl := controller.New(controller.Config{
		Endpoints:      endpoints,
		Workers:        para,
		BatchSize:      ctx.Int(batchSizeFlag.Name),
		MaxConcurrency: params.DefaultMaxConcurrency,
		DBDSN:          dsn,
		LogDir:         cfg.Logs.InspectorsLogPath,
	}, logger)

	results, err := ctrl.Run(runCtx, gateway, controller.Task{Kind: kind, Lower: uint64(after), Upper: uint64(before)})
	if err != nil {
		return err
	}
	logger.Info("run complete", "workers", len(results))
	return nil
}
