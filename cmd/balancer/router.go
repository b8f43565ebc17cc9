package main

import (
	"encoding/json"
	"net/http"

	"github.com/angeloszaimis/redirect-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/redirect-balancer/internal/metrics"
)

type tableEntry struct {
	Endpoint         string  `json:"endpoint"`
	LatencySeconds   float64 `json:"latency_seconds"`
	CumulativeWeight int     `json:"cumulative_weight"`
}

func setupRouter(metricsCollector *metrics.Collector, lb *loadbalancer.LoadBalancer, strategy string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /metrics", metricsCollector.Handler(strategy))
	mux.HandleFunc("GET /table", tableHandler(lb))

	return mux
}

// tableHandler serves the current selection table, slowest entry first.
func tableHandler(lb *loadbalancer.LoadBalancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := lb.Table().Entries()

		out := make([]tableEntry, len(entries))
		for i, e := range entries {
			out[i] = tableEntry{
				Endpoint:         e.Endpoint.String(),
				LatencySeconds:   e.Seconds(),
				CumulativeWeight: e.CumulativeWeight,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
