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

package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type relayMetrics struct {
	storedTotal   prometheus.Counter
	forwardsTotal *prometheus.CounterVec
	presentsTotal prometheus.Counter
}

func (m *relayMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.storedTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_relay_credentials_stored_total",
			Help: "total credentials stored in relay slots",
		},
	)
	m.forwardsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_relay_forwards_total",
			Help: "total calls forwarded with a stored credential, by target method",
		},
		[]string{"method"},
	)
	m.presentsTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_relay_presents_total",
			Help: "total transient credential presentations",
		},
	)
}
