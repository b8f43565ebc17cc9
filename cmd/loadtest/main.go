// Loadtest sends many requests to the balancer without following the
// redirects and reports how often each file server was chosen.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:9000/files/plshelp.txt -requests 5000
//	go run ./cmd/loadtest -url http://localhost:9000/x -requests 5000 -table http://localhost:9100/table -csv results.csv -out summary.json
//
// With -table the current selection table is fetched from the metrics
// endpoint and the expected share of every server is printed next to the
// observed one.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/redirect-balancer/internal/client"
	"github.com/angeloszaimis/redirect-balancer/internal/wire"
)

// endpointStats tracks how often a server was chosen.
type endpointStats struct {
	Count     int64           `json:"count"`
	Latencies []time.Duration `json:"-"`
}

type tableEntry struct {
	Endpoint         string  `json:"endpoint"`
	LatencySeconds   float64 `json:"latency_seconds"`
	CumulativeWeight int     `json:"cumulative_weight"`
}

func main() {
	var (
		target      = flag.String("url", "http://localhost:9000/files/plshelp.txt", "Balancer URL")
		concurrency = flag.Int("concurrency", 4, "Number of concurrent workers")
		requests    = flag.Int("requests", 1000, "Total number of requests to send")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		tableURL    = flag.String("table", "", "Metrics /table URL for expected shares (optional)")
	)

	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	outCSV := flag.String("csv", "", "Write per-request CSV to this file (optional)")
	verbose := flag.Bool("v", false, "Verbose per-request logging to stdout")
	flag.Parse()

	c := client.New(nil)

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total, redirects, unavailable, failures atomic.Int64

	stats := make(map[string]*endpointStats)
	var statsMu sync.Mutex

	var csvWriter *csv.Writer
	var csvMu sync.Mutex
	if *outCSV != "" {
		f, err := os.Create(*outCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create csv file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		csvWriter = csv.NewWriter(f)
		_ = csvWriter.Write([]string{"idx", "timestamp", "endpoint", "status", "duration_ms"})
	}

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				total.Add(1)
				start := time.Now()

				ctx, cancel := context.WithTimeout(context.Background(), *timeout)
				resp, err := c.Fetch(ctx, *target)
				cancel()
				dur := time.Since(start)

				if err != nil {
					failures.Add(1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}

				endpoint := "(none)"
				switch resp.Head.StatusCode {
				case wire.StatusMovedPermanently:
					redirects.Add(1)
					endpoint = hostOf(resp.Head.Location)
				case wire.StatusServiceUnavailable:
					unavailable.Add(1)
				default:
					failures.Add(1)
				}

				statsMu.Lock()
				es, ok := stats[endpoint]
				if !ok {
					es = &endpointStats{}
					stats[endpoint] = es
				}
				es.Count++
				es.Latencies = append(es.Latencies, dur)
				statsMu.Unlock()

				if csvWriter != nil {
					csvMu.Lock()
					_ = csvWriter.Write([]string{
						strconv.Itoa(idx),
						time.Now().Format(time.RFC3339Nano),
						endpoint,
						resp.Head.StatusCode,
						fmt.Sprintf("%.3f", float64(dur.Microseconds())/1000.0),
					})
					csvMu.Unlock()
				}

				if *verbose {
					fmt.Printf("[%d] idx=%d endpoint=%s status=%s dur=%v\n", workerID, idx, endpoint, resp.Head.StatusCode, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)

	if csvWriter != nil {
		csvWriter.Flush()
	}

	var expected map[string]float64
	if *tableURL != "" {
		var err error
		expected, err = expectedShares(*tableURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fetch selection table: %v\n", err)
		}
	}

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", *target)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Redirects: %d  Unavailable: %d  Failures: %d\n",
		total.Load(), redirects.Load(), unavailable.Load(), failures.Load())
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, float64(total.Load())/totalDuration.Seconds())

	fmt.Println("\nRedirect distribution:")
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		es := stats[k]
		share := 0.0
		if n := redirects.Load(); n > 0 && k != "(none)" {
			share = float64(es.Count) / float64(n)
		}

		sorted := append([]time.Duration(nil), es.Latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		line := fmt.Sprintf("  %s -> count=%d share=%.3f", k, es.Count, share)
		if want, ok := expected[k]; ok {
			line += fmt.Sprintf(" expected=%.3f", want)
		}
		fmt.Println(line)
		if len(sorted) > 0 {
			fmt.Printf("    latencies: p50=%v p95=%v max=%v\n",
				pick(sorted, 0.50), pick(sorted, 0.95), sorted[len(sorted)-1])
		}
	}

	if *outJSON != "" {
		type endpointSummary struct {
			Count    int64   `json:"count"`
			Share    float64 `json:"share"`
			Expected float64 `json:"expected,omitempty"`
		}
		report := map[string]interface{}{
			"target":      *target,
			"requests":    *requests,
			"concurrency": *concurrency,
			"redirects":   redirects.Load(),
			"unavailable": unavailable.Load(),
			"failures":    failures.Load(),
			"duration_ms": totalDuration.Milliseconds(),
		}

		summary := map[string]endpointSummary{}
		for k, es := range stats {
			s := endpointSummary{Count: es.Count, Expected: expected[k]}
			if n := redirects.Load(); n > 0 && k != "(none)" {
				s.Share = float64(es.Count) / float64(n)
			}
			summary[k] = s
		}
		report["endpoints"] = summary

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failures.Load() > 0 {
		os.Exit(2)
	}
}

// hostOf returns host:port of a redirect location.
func hostOf(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return "(bad location)"
	}
	return u.Host
}

func pick(sorted []time.Duration, p float64) time.Duration {
	return sorted[int(float64(len(sorted)-1)*p)]
}

// expectedShares turns the published selection table into the probability
// of every endpoint: the gap between its cumulative weight and the previous
// one, over the total.
func expectedShares(tableURL string) (map[string]float64, error) {
	resp, err := http.Get(tableURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var entries []tableEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	total := float64(entries[len(entries)-1].CumulativeWeight)
	shares := make(map[string]float64, len(entries))
	prev := 0
	for _, e := range entries {
		shares[e.Endpoint] = float64(e.CumulativeWeight-prev) / total
		prev = e.CumulativeWeight
	}
	return shares, nil
}
