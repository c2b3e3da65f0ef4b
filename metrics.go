// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package microchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type indexerMetrics struct {
	blocksTotal  *prometheus.CounterVec
	forkedBlocks prometheus.Counter
	applySeconds prometheus.Histogram
	head         prometheus.Gauge
	irreversible prometheus.Gauge
	logBlocks    prometheus.Gauge
	undoDepth    prometheus.Gauge
}

func (m *indexerMetrics) init(promRegistry prometheus.Registerer) {
	// promauto.With(nil) creates unregistered collectors
	promautoFactory := promauto.With(promRegistry)
	m.blocksTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microchain_indexer_blocks_total",
			Help: "total number of submitted blocks by outcome",
		},
		[]string{"status"},
	)
	m.forkedBlocks = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "microchain_indexer_forked_blocks_total",
		Help: "total number of blocks undone because of forks or rollbacks",
	})
	m.applySeconds = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "microchain_indexer_block_apply_seconds",
		Help:    "time taken to replay one block",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
	m.head = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "microchain_indexer_head_block",
		Help: "number of the newest block in the block log",
	})
	m.irreversible = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "microchain_indexer_irreversible_block",
		Help: "number of the irreversible block",
	})
	m.logBlocks = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "microchain_indexer_log_blocks",
		Help: "number of blocks held in the in-memory block log",
	})
	m.undoDepth = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "microchain_indexer_undo_stack_depth",
		Help: "number of revocable states on the undo stack",
	})
}
