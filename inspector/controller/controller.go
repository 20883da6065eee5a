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

// Package controller is the top-level driver (component C7): it
// partitions one global task across a worker-process pool, assigns
// each worker an RPC endpoint, forks the pool, and collects exit
// status without aborting siblings on a single worker's failure.
// Workers are true OS processes (spec.md §5 requires this, not
// goroutines): the controller re-executes its own binary with a
// hidden "worker" subcommand carrying that worker's slice of the task.
package controller

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/tlscan/tlscan/inspector"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/storage"
)

// Task is the global unit of work the operator hands to the
// controller: either a half-open block range (TLSC / block / block
// attributes inspectors) or an explicit list of contract addresses
// (contract inspector driven directly by an address list rather than
// a range).
type Task struct {
	Kind          inspector.Kind
	Lower, Upper  uint64
	ContractAddrs []string // only used when Kind == KindContract and the caller already has an explicit list
}

// Config configures one controller run.
type Config struct {
	Endpoints      []string
	Workers        int
	BatchSize      int
	MaxConcurrency int
	DBDSN          string
	LogDir         string
	LogLevel       log.Level
	// SelfPath is the binary the controller re-executes for each
	// worker. Defaults to os.Executable() when empty.
	SelfPath string
}

// WorkerPlan is one worker process's assigned slice of the global
// task plus the endpoint it was handed.
type WorkerPlan struct {
	Index         int
	Endpoint      string
	Kind          inspector.Kind
	Lower, Upper  uint64
	ContractAddrs []string
}

// Controller drives one run end to end: schema, partition, fork, join.
type Controller struct {
	cfg    Config
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) *Controller {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Controller{cfg: cfg, logger: logger}
}

// Plan partitions task across c.cfg.Workers workers and assigns each
// one an endpoint, per spec.md §4.7.2/§4.7.3. For KindContract with no
// explicit address list, it first resolves [Lower,Upper) to the
// concrete contract refs already discovered by the TLSC inspector
// (component C4's contracts_in_range), then partitions that list —
// contiguous slices, not disjoint ranges, since contract inspection
// has no notion of block-range locality.
func (c *Controller) Plan(ctx context.Context, gateway *storage.Gateway, task Task) ([]WorkerPlan, error) {
	if len(c.cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("controller: no RPC endpoints configured")
	}
	if c.cfg.Workers > len(c.cfg.Endpoints) {
		c.logger.Warn("more workers than endpoints, sharing endpoints round-robin",
			"workers", c.cfg.Workers, "endpoints", len(c.cfg.Endpoints))
	}

	n := c.cfg.Workers
	var plans []WorkerPlan

	switch task.Kind {
	case inspector.KindContract:
		addrs := task.ContractAddrs
		if addrs == nil {
			refs, err := gateway.ContractsInRange(ctx, task.Lower, task.Upper)
			if err != nil {
				return nil, fmt.Errorf("controller: resolve contract refs: %w", err)
			}
			addrs = make([]string, len(refs))
			for i, r := range refs {
				addrs[i] = r.ContractAddress
			}
		}
		slices := PartitionContiguous(addrs, n)
		for i, s := range slices {
			plans = append(plans, WorkerPlan{
				Index:         i,
				Endpoint:      c.cfg.Endpoints[i%len(c.cfg.Endpoints)],
				Kind:          task.Kind,
				ContractAddrs: s,
			})
		}
	default:
		ranges := partitionRange(task.Lower, task.Upper, n)
		for i, r := range ranges {
			plans = append(plans, WorkerPlan{
				Index:    i,
				Endpoint: c.cfg.Endpoints[i%len(c.cfg.Endpoints)],
				Kind:     task.Kind,
				Lower:    r[0],
				Upper:    r[1],
			})
		}
	}

	return plans, nil
}

// partitionRange splits [lower, upper) into n roughly-equal sub-ranges
// via linear spacing of n+1 cut points over [lower, upper], exactly as
// spec.md §4.7.2 specifies.
func partitionRange(lower, upper uint64, n int) [][2]uint64 {
	if n < 1 {
		n = 1
	}
	if upper <= lower {
		return nil
	}
	total := upper - lower
	out := make([][2]uint64, 0, n)
	prevCut := lower
	for i := 1; i <= n; i++ {
		cut := lower + (total*uint64(i))/uint64(n)
		if cut > prevCut {
			out = append(out, [2]uint64{prevCut, cut})
			prevCut = cut
		}
	}
	return out
}

// PartitionContiguous splits items into n roughly-equal contiguous
// slices, per spec.md §4.7.2. Exported so cmd/tlscan-analyze can share
// the same partitioning logic against its in-process worker pool.
func PartitionContiguous(items []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	if len(items) == 0 {
		return nil
	}
	out := make([][]string, 0, n)
	base := len(items) / n
	rem := len(items) % n
	idx := 0
	for i := 0; i < n && idx < len(items); i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		end := idx + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[idx:end])
		idx = end
	}
	return out
}

// WorkerResult is one worker process's exit outcome.
type WorkerResult struct {
	Plan     WorkerPlan
	Err      error
	ExitCode int
}

// Run ensures the schema exists, plans the task, forks one OS process
// per worker via a re-exec of the controller's own binary, and waits
// for all of them. A single worker's failure never aborts its
// siblings — partial progress is valuable given the system's
// idempotent resume semantics (spec.md §4.7.5). Apart from schema and
// planning errors, Run returns an error only if every worker failed;
// a task that plans no workers returns no results and no error.
func (c *Controller) Run(ctx context.Context, gateway *storage.Gateway, task Task) ([]WorkerResult, error) {
	if err := gateway.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("controller: ensure schema: %w", err)
	}

	plans, err := c.Plan(ctx, gateway, task)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		c.logger.Info("no work to partition, nothing to run")
		return nil, nil
	}

	selfPath := c.cfg.SelfPath
	if selfPath == "" {
		selfPath, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("controller: resolve self executable: %w", err)
		}
	}

	results := make([]WorkerResult, len(plans))
	var wg sync.WaitGroup
	for i, plan := range plans {
		i, plan := i, plan
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.runWorker(ctx, selfPath, plan)
		}()
	}
	wg.Wait()

	allFailed := true
	for _, r := range results {
		c.logExit(r)
		if r.Err == nil {
			allFailed = false
		}
	}
	if allFailed {
		return results, fmt.Errorf("controller: all %d workers failed", len(results))
	}
	return results, nil
}

func (c *Controller) logExit(r WorkerResult) {
	if r.Err != nil {
		c.logger.Error("worker exited with error", "index", r.Plan.Index, "endpoint", r.Plan.Endpoint,
			"code", r.ExitCode, "err", r.Err)
		return
	}
	c.logger.Info("worker committed", "index", r.Plan.Index, "endpoint", r.Plan.Endpoint)
}

func (c *Controller) runWorker(ctx context.Context, selfPath string, plan WorkerPlan) WorkerResult {
	args := WorkerArgs(plan, c.cfg)
	cmd := exec.CommandContext(ctx, selfPath, args...)

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
	}
	return WorkerResult{Plan: plan, Err: err, ExitCode: exitCode}
}

// WorkerArgs renders plan and the shared controller config as the
// argv the re-exec'd "worker" subcommand parses, per cmd/tlscan's flag
// surface. Exported so cmd/tlscan can build the same argv the
// controller uses, without the CLI package importing exec internals.
func WorkerArgs(plan WorkerPlan, cfg Config) []string {
	args := []string{
		"worker",
		"--kind", plan.Kind.String(),
		"--rpc", plan.Endpoint,
		"--db-dsn", cfg.DBDSN,
		"--batch-size", strconv.Itoa(cfg.BatchSize),
		"--max-concurrency", strconv.Itoa(cfg.MaxConcurrency),
		"--log-dir", cfg.LogDir,
		"--worker-index", strconv.Itoa(plan.Index),
	}
	if plan.Kind == inspector.KindContract {
		args = append(args, "--contracts", strings.Join(plan.ContractAddrs, ","))
	} else {
		args = append(args, "--after", strconv.FormatUint(plan.Lower, 10), "--before", strconv.FormatUint(plan.Upper, 10))
	}
	return args
}
