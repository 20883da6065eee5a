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

// Command tlscan-analyze is the secondary, out-of-scope CLI entry
// point: it fans the already-discovered contracts out across --para
// in-process workers, each running the deep-classifier seam
// (analyzer.DeepClassify) and appending its verdicts to a per-worker
// CSV file. Unlike cmd/tlscan's controller, this one does not fork OS
// processes or touch an RPC endpoint — spec.md §6 scopes it as a
// standalone analyzer over data tlscan has already persisted.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/urfave/cli"

	"github.com/tlscan/tlscan/analyzer"
	"github.com/tlscan/tlscan/cmd/utils"
	"github.com/tlscan/tlscan/config"
	"github.com/tlscan/tlscan/inspector/controller"
	"github.com/tlscan/tlscan/storage"
)

var paraFlag = cli.IntFlag{Name: "para", Usage: "number of in-process workers", Value: runtime.NumCPU()}
var configFlag = cli.StringFlag{Name: "config", Usage: "path to the TOML config file", Value: "tlscan.toml"}
var dbDSNFlag = cli.StringFlag{Name: "db-dsn", EnvVar: "TLSCAN_DB_DSN"}

func main() {
	app := cli.NewApp()
	app.Name = "tlscan-analyze"
	app.Usage = "apply the deep time-lock classifier to already-discovered contracts"
	app.Flags = []cli.Flag{paraFlag, configFlag, dbDSNFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		utils.Fatalf("%v", err)
	}
}

func run(ctx *cli.Context) error {
	para := ctx.Int(paraFlag.Name)
	if para <= 0 {
		return fmt.Errorf("--para must be greater than zero")
	}

	if _, err := config.Load(ctx.String(configFlag.Name)); err != nil {
		return fmt.Errorf("tlscan-analyze: %w", err)
	}

	gateway, err := storage.Open(ctx.String(dbDSNFlag.Name), 2, 1)
	if err != nil {
		return fmt.Errorf("tlscan-analyze: %w", err)
	}
	defer gateway.Close()

	runCtx, stop := utils.InterruptContext(context.Background())
	defer stop()

	contracts, err := gateway.AllContractAddresses(runCtx)
	if err != nil {
		return fmt.Errorf("tlscan-analyze: %w", err)
	}

	addrs := make([]string, 0, len(contracts))
	for addr := range contracts {
		addrs = append(addrs, addr)
	}
	shares := controller.PartitionContiguous(addrs, para)

	var wg sync.WaitGroup
	errs := make([]error, len(shares))
	for i, share := range shares {
		i, share := i, share
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = analyzeShare(i, share, contracts)
		}()
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func analyzeShare(workerIndex int, addrs []string, contracts map[string]string) error {
	if len(addrs) == 0 {
		return nil
	}
	sink, err := analyzer.NewCSVSink(workerIndex)
	if err != nil {
		return err
	}
	defer sink.Close()

	for _, addr := range addrs {
		isTimeLocked, err := analyzer.DeepClassify(contracts[addr])
		if err != nil {
			continue // decoding error: skip the offending contract, don't fail the worker
		}
		if err := sink.Write(addr, isTimeLocked); err != nil {
			return err
		}
	}
	return nil
}
