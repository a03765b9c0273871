/*
Copyright 2025 The Organization Manager contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics records counters and durations of organization writes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "organization_api"
	subsystem = "service_organization"
)

// Operation is a measured unit of work.
type Operation string

const (
	OperationCreate           Operation = "create"
	OperationCreateK8s        Operation = "create_k8s"
	OperationCreateRepository Operation = "create_repository"
	OperationDelete           Operation = "delete"
	OperationDeleteRepository Operation = "delete_repository"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder counts operation outcomes and measures their duration.
type Recorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Number of organization operations by outcome.",
		}, []string{"operation", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Duration of organization operations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{r.operations, r.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// DurationWithCounter runs f, observes its duration and counts its outcome.
// The error of f is returned unchanged.
func (r *Recorder) DurationWithCounter(op Operation, f func() error) error {
	start := time.Now()
	err := f()
	r.durations.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	r.operations.WithLabelValues(string(op), result).Inc()

	return err
}
