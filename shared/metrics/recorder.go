// Copyright 2025 AxonFlow
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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"blobsweep/pipeline"
)

// Recorder exports pipeline statistics as Prometheus metrics. It
// implements pipeline.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	items      *prometheus.CounterVec
	blocks     prometheus.Counter
	queueDepth prometheus.Gauge
	progress   prometheus.Gauge

	mu          sync.Mutex
	maxProgress int64
}

// NewRecorder registers the run metrics, labelled with the operation name,
// on a fresh registry.
func NewRecorder(operation string) *Recorder {
	labels := prometheus.Labels{"operation": operation}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "blobsweep_items_total",
				Help:        "Total number of items processed, by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blobsweep_blocks_total",
			Help:        "Total number of blocks fully processed",
			ConstLabels: labels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "blobsweep_queue_depth_blocks",
			Help:        "Blocks waiting in the queue when a worker last dequeued",
			ConstLabels: labels,
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "blobsweep_progress_items",
			Help:        "Current value of the progress counter",
			ConstLabels: labels,
		}),
	}

	r.registry.MustRegister(r.items, r.blocks, r.queueDepth, r.progress)
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ItemProcessed(outcome pipeline.Outcome) {
	r.items.WithLabelValues(outcome.String()).Inc()
}

func (r *Recorder) BlockProcessed() {
	r.blocks.Inc()
}

func (r *Recorder) QueueDepth(blocks int) {
	r.queueDepth.Set(float64(blocks))
}

// Progress keeps the gauge at the highest value seen; callbacks from
// different workers may arrive out of order.
func (r *Recorder) Progress(value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value <= r.maxProgress {
		return
	}
	r.maxProgress = value
	r.progress.Set(float64(value))
}

var _ pipeline.Recorder = (*Recorder)(nil)
