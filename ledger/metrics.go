// Copyright 2024 Blink Labs Software
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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	actionsTotal *prometheus.CounterVec
	faultsTotal  *prometheus.CounterVec
	blockNum     prometheus.Gauge
	members      prometheus.Gauge
	inductions   prometheus.Gauge
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.actionsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microchain_ledger_actions_total",
			Help: "total number of contract actions replayed",
		},
		[]string{"action"},
	)
	m.faultsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microchain_ledger_action_faults_total",
			Help: "total number of contract actions that faulted during replay",
		},
		[]string{"action"},
	)
	m.blockNum = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "microchain_ledger_block_num",
		Help: "number of the last replayed block",
	})
	m.members = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "microchain_ledger_members",
		Help: "current number of members",
	})
	m.inductions = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "microchain_ledger_inductions",
		Help: "current number of pending inductions",
	})
}
