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

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const blockStoreMetricNamePrefix = "microchain_block_store_"

type blockStoreMetrics struct {
	opsTotal   *prometheus.CounterVec
	bytesTotal prometheus.Counter
}

func (m *blockStoreMetrics) init(promRegistry prometheus.Registerer) {
	// promauto.With(nil) creates unregistered collectors
	promautoFactory := promauto.With(promRegistry)
	m.opsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: blockStoreMetricNamePrefix + "ops_total",
			Help: "Total number of block store operations",
		},
		[]string{"op"},
	)
	m.bytesTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: blockStoreMetricNamePrefix + "bytes_written_total",
			Help: "Total bytes of encoded blocks written to the block store",
		},
	)
}
