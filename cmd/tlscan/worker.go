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

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/tlscan/tlscan/cmd/utils"
	"github.com/tlscan/tlscan/inspector"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/metrics"
	"github.com/tlscan/tlscan/params"
	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// workerCommand is the hidden entry point one controller-spawned OS
// process runs. It owns its own RPC connection and DB session (spec.md
// §3 "Ownership": each worker owns its own RPC connection and its own
// database session) and drives exactly one Inspector to completion.
var workerCommand = cli.Command{
	Name:   "worker",
	Hidden: true,
	Usage:  "run a single inspector sub-batch loop; spawned by the controller, not meant for direct use",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "kind", Usage: "tlsc|block|contract|block-attributes"},
		cli.StringFlag{Name: "rpc", Usage: "RPC endpoint this worker owns"},
		cli.StringFlag{Name: "db-dsn"},
		cli.IntFlag{Name: "after"},
		cli.IntFlag{Name: "before"},
		cli.StringFlag{Name: "contracts", Usage: "comma-separated contract address list"},
		cli.IntFlag{Name: "batch-size"},
		cli.IntFlag{Name: "max-concurrency", Value: params.DefaultMaxConcurrency},
		cli.StringFlag{Name: "log-dir"},
		cli.IntFlag{Name: "worker-index"},
		cli.StringFlag{Name: "metrics-addr", Usage: "if set, serve Prometheus metrics on this address for the worker's lifetime"},
	},
	Action: runWorker,
}

func parseKind(s string) (inspector.Kind, error) {
	switch s {
	case "tlsc":
		return inspector.KindTLSC, nil
	case "block":
		return inspector.KindBlock, nil
	case "contract":
		return inspector.KindContract, nil
	case "block-attributes":
		return inspector.KindBlockAttributes, nil
	default:
		return 0, fmt.Errorf("worker: unknown --kind %q", s)
	}
}

func runWorker(ctx *cli.Context) error {
	kind, err := parseKind(ctx.String("kind"))
	if err != nil {
		return err
	}
	endpoint := ctx.String("rpc")
	if endpoint == "" {
		return fmt.Errorf("worker: --rpc is required")
	}

	logger, closer, err := log.NewWorkerLogger(
		fmt.Sprintf("worker-%d", ctx.Int("worker-index")), endpoint, ctx.String("log-dir"), log.LevelInfo)
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	defer closer.Close()

	reg := metrics.NewRegistry()
	if addr := ctx.String("metrics-addr"); addr != "" {
		srv := serveMetrics(addr, reg, logger)
		defer srv.Close()
	}

	gateway, err := storage.Open(ctx.String("db-dsn"), 2, 1)
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	defer gateway.Close()

	client := rpcclient.Dial(endpoint,
		rpcclient.WithTimeout(params.BatchRequestTimeout),
		rpcclient.WithMaxRetries(params.MaxRPCRetries),
		rpcclient.WithRetryObserver(func() { reg.RPCRetries.Inc(1) }),
		rpcclient.WithFailureObserver(func() { reg.RPCCallsFailed.Inc(1) }))

	insp, err := inspector.New(kind, gateway, client, logger, ctx.Int("max-concurrency"))
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	task := inspector.TaskBatch{Lower: uint64(ctx.Int("after")), Upper: uint64(ctx.Int("before"))}
	if kind == inspector.KindContract {
		task = inspector.TaskBatch{ContractRefs: parseContractRefs(ctx.String("contracts"))}
	}

	runCtx, stop := utils.InterruptContext(context.Background())
	defer stop()

	if err := inspector.RunMany(runCtx, insp, task, ctx.Int("batch-size"), ctx.Int("max-concurrency"), logger, reg); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	return nil
}

func parseContractRefs(csv string) []storage.ContractRef {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	refs := make([]storage.ContractRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		refs = append(refs, storage.ContractRef{ContractAddress: p})
	}
	return refs
}
