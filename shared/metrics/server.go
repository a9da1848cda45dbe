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
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blobsweep/shared/logger"
)

// Server exposes /metrics and /health while a run is in progress.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log *logger.Logger

	started time.Time
}

// NewRouter builds the HTTP routes for gatherer.
func NewRouter(gatherer prometheus.Gatherer, started time.Time) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":         "healthy",
			"service":        "blobsweep",
			"timestamp":      time.Now().UTC(),
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	}).Methods("GET")
	return r
}

// Listen binds addr (":9100", "127.0.0.1:0", ...) and starts serving in
// the background.
func Listen(addr string, gatherer prometheus.Gatherer, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.New("metrics")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}

	s := &Server{ln: ln, log: log, started: time.Now()}
	s.srv = &http.Server{
		Handler:           NewRouter(gatherer, s.started),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	log.Info("Metrics server listening", map[string]interface{}{"addr": ln.Addr().String()})
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
