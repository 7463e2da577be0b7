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

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type registryMetrics struct {
	proposalsTotal   *prometheus.CounterVec
	votesTotal       prometheus.Counter
	redemptionsTotal prometheus.Counter
	resolutionsTotal *prometheus.CounterVec
	executionsTotal  *prometheus.CounterVec
	escrow           *prometheus.GaugeVec
}

func (m *registryMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposalsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_governance_proposals_total",
			Help: "total number of proposals created by kind",
		},
		[]string{"kind"},
	)
	m.votesTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "agora_governance_votes_total",
		Help: "total number of votes cast",
	})
	m.redemptionsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "agora_governance_redemptions_total",
		Help: "total number of vote receipts redeemed",
	})
	m.resolutionsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_governance_resolutions_total",
			Help: "total number of proposals resolved by outcome",
		},
		[]string{"outcome"},
	)
	m.executionsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_governance_executions_total",
			Help: "total number of executive proposals executed by mode",
		},
		[]string{"mode"},
	)
	m.escrow = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agora_governance_escrow",
			Help: "vote tokens held in escrow by registry",
		},
		[]string{"registry"},
	)
}
