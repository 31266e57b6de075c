// Copyright 2026 The Z6 Authors.
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

// Package metricsexport mirrors a reducer.Metrics snapshot onto
// Prometheus collectors (SPEC_FULL.md §4.8). It is opt-in: the
// deterministic core never imports this package, so a run's event log
// is unaffected by whether metrics export is enabled, the same
// separation the teacher's internal/ratelimiter/telemetry/churn keeps
// between the VSA core and its optional Prometheus counters.
package metricsexport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"z6/internal/reducer"
)

// Collector owns the Prometheus collectors mirroring reducer.Metrics.
// It registers against its own prometheus.Registry rather than the
// global default, so tests and multiple z6 runs in one process never
// collide.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    prometheus.Counter
	requestsSuccess  prometheus.Counter
	requestsFailed   prometheus.Counter
	connectionsTotal prometheus.Counter
	connectionErrors prometheus.Counter
	errorsByKind     *prometheus.CounterVec
	latencySeconds   prometheus.Histogram

	latest atomic.Pointer[reducer.Metrics]
}

// New returns a Collector with all mirrored metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z6_requests_total",
			Help: "Total requests issued by the run.",
		}),
		requestsSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z6_requests_success_total",
			Help: "Requests that completed with a status code below 400.",
		}),
		requestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z6_requests_failed_total",
			Help: "Requests that completed with a status code of 400 or above, or that errored.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z6_connections_total",
			Help: "Total connections established by the run.",
		}),
		connectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z6_connection_errors_total",
			Help: "Total connection-level errors.",
		}),
		errorsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "z6_errors_total",
			Help: "Errors observed, broken down by taxonomy kind.",
		}, []string{"kind"}),
		latencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "z6_request_latency_seconds",
			Help:    "Request latency in seconds: the reducer's mean latency, observed once per newly completed response.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(
		c.requestsTotal, c.requestsSuccess, c.requestsFailed,
		c.connectionsTotal, c.connectionErrors, c.errorsByKind, c.latencySeconds,
	)
	return c
}

// Update publishes m both as the atomically-readable snapshot (Latest)
// and as deltas against the previous snapshot onto the Prometheus
// counters, so counters only ever move forward between calls even
// though m itself is a cumulative total.
func (c *Collector) Update(m reducer.Metrics) {
	prev := c.latest.Load()
	c.addDelta(prev, m)
	mCopy := m
	c.latest.Store(&mCopy)
}

// Latest returns the most recently published Metrics snapshot, or nil
// if Update has never been called.
func (c *Collector) Latest() *reducer.Metrics { return c.latest.Load() }

func (c *Collector) addDelta(prev *reducer.Metrics, m reducer.Metrics) {
	var p reducer.Metrics
	if prev != nil {
		p = *prev
	}
	c.requestsTotal.Add(float64(m.Requests.Total - p.Requests.Total))
	c.requestsSuccess.Add(float64(m.Requests.Success - p.Requests.Success))
	c.requestsFailed.Add(float64(m.Requests.Failed - p.Requests.Failed))
	c.connectionsTotal.Add(float64(m.Connections.Total - p.Connections.Total))
	c.connectionErrors.Add(float64(m.Connections.Errors - p.Connections.Errors))

	c.errorsByKind.WithLabelValues("dns").Add(float64(m.Errors.DNS - p.Errors.DNS))
	c.errorsByKind.WithLabelValues("tcp").Add(float64(m.Errors.TCP - p.Errors.TCP))
	c.errorsByKind.WithLabelValues("tls").Add(float64(m.Errors.TLS - p.Errors.TLS))
	c.errorsByKind.WithLabelValues("http").Add(float64(m.Errors.HTTP - p.Errors.HTTP))
	c.errorsByKind.WithLabelValues("timeout").Add(float64(m.Errors.Timeout - p.Errors.Timeout))
	c.errorsByKind.WithLabelValues("protocol").Add(float64(m.Errors.Protocol - p.Errors.Protocol))
	c.errorsByKind.WithLabelValues("resource").Add(float64(m.Errors.Resource - p.Errors.Resource))

	// The histogram has no delta semantics (Prometheus histograms are
	// cumulative by bucket, not by total), so on each Update we observe
	// the new mean once per newly completed response. This keeps the
	// exported distribution moving without re-observing the same
	// samples the reducer already folded into m.Latency's percentiles.
	newResponses := m.Throughput.ResponseCount - p.Throughput.ResponseCount
	for i := uint64(0); i < newResponses; i++ {
		c.latencySeconds.Observe(float64(m.Latency.MeanNS) / 1e9)
	}
}

// Server serves the Collector's registry on /metrics. It is only
// started when the CLI's --metrics-addr flag is non-empty.
type Server struct {
	http *http.Server
}

// NewServer builds an HTTP server exposing c's registry at addr. Start
// must be called to actually listen.
func NewServer(addr string, c *Collector) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start listens in the background and returns immediately. errCh
// receives the terminal error from ListenAndServe, if any, once the
// server stops (http.ErrServerClosed is swallowed since that is the
// expected outcome of Shutdown).
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	var once sync.Once
	go func() {
		err := s.http.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		once.Do(func() { errCh <- err })
	}()
	return errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
