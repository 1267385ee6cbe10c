/*
Copyright 2025 The azrest-go Authors

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

package azrest

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors a Client records against.
// Constructed with its own registry by default so multiple Clients in
// the same process (or in tests) never collide on collector
// registration; use WithMetrics to share one across Clients that should
// be aggregated together.
type Metrics struct {
	Registry *prometheus.Registry
	attempts prometheus.Counter
	retries  prometheus.Counter
	pages    prometheus.Counter
	lroPolls prometheus.Counter
	batches  prometheus.Counter
}

// NewMetrics builds a Metrics with a fresh registry and registers every
// collector on it.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "azrest_transport_attempts_total",
			Help: "Total number of HTTP round trips attempted, including retries.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "azrest_retry_attempts_total",
			Help: "Total number of attempts classified as retriable Azure errors.",
		}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "azrest_pagination_pages_total",
			Help: "Total number of pages fetched while following nextLink chains.",
		}),
		lroPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "azrest_lro_polls_total",
			Help: "Total number of long-running-operation poll requests issued.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "azrest_batch_calls_total",
			Help: "Total number of /batch calls issued.",
		}),
	}
	reg.MustRegister(m.attempts, m.retries, m.pages, m.lroPolls, m.batches)
	return m
}
