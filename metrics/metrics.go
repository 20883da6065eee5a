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

// Package metrics keeps per-worker counters in an in-process registry
// (rcrowley/go-metrics, the teacher's own metrics library) and exposes
// them to Prometheus on demand.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gometrics "github.com/rcrowley/go-metrics"
)

// Registry is the set of counters one worker process reports.
type Registry struct {
	inner gometrics.Registry

	BlocksInspected     gometrics.Counter
	ContractsDiscovered gometrics.Counter
	ContractsInspected  gometrics.Counter
	RPCRetries          gometrics.Counter
	RPCCallsFailed       gometrics.Counter
	SubBatchesCommitted gometrics.Counter
	SubBatchesFailed    gometrics.Counter
}

// NewRegistry creates a fresh, unexported-name-spaced registry for one
// worker process.
func NewRegistry() *Registry {
	r := gometrics.NewRegistry()
	reg := &Registry{
		inner:               r,
		BlocksInspected:     gometrics.NewRegisteredCounter("tlscan.blocks_inspected", r),
		ContractsDiscovered: gometrics.NewRegisteredCounter("tlscan.contracts_discovered", r),
		ContractsInspected:  gometrics.NewRegisteredCounter("tlscan.contracts_inspected", r),
		RPCRetries:          gometrics.NewRegisteredCounter("tlscan.rpc_retries", r),
		RPCCallsFailed:      gometrics.NewRegisteredCounter("tlscan.rpc_calls_failed", r),
		SubBatchesCommitted: gometrics.NewRegisteredCounter("tlscan.subbatches_committed", r),
		SubBatchesFailed:    gometrics.NewRegisteredCounter("tlscan.subbatches_failed", r),
	}
	return reg
}

// collector bridges the rcrowley registry into the Prometheus
// collection model: each counter becomes a Prometheus Gauge sampled at
// scrape time (counters here are monotonic process-lifetime totals,
// which Prometheus gauges represent faithfully without requiring a
// parallel prometheus.Counter to be incremented at every call site).
type collector struct {
	reg *Registry
}

var namesAndHelp = map[string]string{
	"tlscan.blocks_inspected":      "Blocks written to the blocks table by this worker.",
	"tlscan.contracts_discovered":  "TLSC candidate contracts written by this worker.",
	"tlscan.contracts_inspected":   "Contracts whose balance/info this worker has probed.",
	"tlscan.rpc_retries":          "RPC calls retried after a transient failure.",
	"tlscan.rpc_calls_failed":     "RPC calls that exhausted retries or failed permanently.",
	"tlscan.subbatches_committed": "Sub-batches committed to the database.",
	"tlscan.subbatches_failed":    "Sub-batches that raised and were not committed.",
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for name, help := range namesAndHelp {
		ch <- prometheus.NewDesc(metricName(name), help, nil, nil)
	}
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	c.reg.inner.Each(func(name string, i interface{}) {
		counter, ok := i.(gometrics.Counter)
		if !ok {
			return
		}
		desc := prometheus.NewDesc(metricName(name), namesAndHelp[name], nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(counter.Count()))
	})
}

func metricName(rcrowleyName string) string {
	out := make([]byte, 0, len(rcrowleyName))
	for _, r := range rcrowleyName {
		if r == '.' {
			out = append(out, '_')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// Handler returns an http.Handler exposing reg in Prometheus exposition
// format. A worker serves it on the address given by its
// --metrics-addr flag.
func Handler(reg *Registry) http.Handler {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(&collector{reg: reg})
	return promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
}
