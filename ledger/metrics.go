// Copyright 2026 Blink Labs Software
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

type ledgerMetrics struct {
	txTotal    *prometheus.CounterVec
	txDuration prometheus.Histogram
	callsTotal *prometheus.CounterVec
}

func (m *ledgerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.txTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_ledger_transactions_total",
			Help: "total number of ledger transactions by result",
		},
		[]string{"result"},
	)
	m.txDuration = promautoFactory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agora_ledger_transaction_duration_seconds",
			Help:    "duration of ledger transactions",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
	)
	m.callsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_ledger_component_calls_total",
			Help: "total number of component method calls",
		},
		[]string{"method"},
	)
}

type clockMetrics struct {
	epoch prometheus.Gauge
}

func (m *clockMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.epoch = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "agora_ledger_epoch",
		Help: "current epoch",
	})
}
