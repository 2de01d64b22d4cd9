// mediastate - Inline media attachment state for chat clients.
// Copyright (C) 2026 Tulir Asokan
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package resource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transfersStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediastate_transfers_started_total",
		Help: "Number of media transfers started",
	}, []string{"kind"})
	transfersFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediastate_transfers_finished_total",
		Help: "Number of media transfers that ended, by result",
	}, []string{"kind", "result"})
	transfersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediastate_transfers_active",
		Help: "Number of media transfers currently holding a download slot",
	})
	transferredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediastate_transferred_bytes_total",
		Help: "Bytes written to the media cache",
	})
)

const (
	resultCompleted = "completed"
	resultFailed    = "failed"
	resultCancelled = "cancelled"
)
