// Command loadtest drives many full checkouts against one tier concurrently
// and reports whether the service ever sold more than the tier holds.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/handler/dto"
)

type config struct {
	host        string
	eventID     string
	tierID      string
	sessions    int
	concurrency int
	quantity    int
}

type results struct {
	confirmed atomic.Int64
	soldOut   atomic.Int64
	failed    atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
}

func main() {
	cfg := config{}
	flag.StringVar(&cfg.host, "host", "http://localhost:8080", "API host")
	flag.StringVar(&cfg.eventID, "event", "spring-show", "event id")
	flag.StringVar(&cfg.tierID, "tier", "ga-spring-show", "tier id every shopper buys")
	flag.IntVar(&cfg.sessions, "sessions", 500, "number of checkouts")
	flag.IntVar(&cfg.concurrency, "concurrency", 50, "concurrent shoppers")
	flag.IntVar(&cfg.quantity, "quantity", 2, "tickets per checkout")
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	before, err := available(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read tiers: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("checkouts=%d concurrency=%d quantity=%d available=%d\n", cfg.sessions, cfg.concurrency, cfg.quantity, before)

	res := &results{latencies: make([]time.Duration, 0, cfg.sessions)}
	jobs := make(chan int, cfg.sessions)
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < cfg.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				t0 := time.Now()
				status := checkout(client, cfg, n)
				res.record(status, time.Since(t0))
			}
		}()
	}

	for i := 0; i < cfg.sessions; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	after, err := available(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read tiers: %v\n", err)
		os.Exit(1)
	}

	sold := int64(before - after)
	booked := res.confirmed.Load() * int64(cfg.quantity)

	fmt.Printf("duration=%.2fs throughput=%.1f checkouts/s\n", elapsed.Seconds(), float64(cfg.sessions)/elapsed.Seconds())
	fmt.Printf("confirmed=%d sold_out=%d failed=%d\n", res.confirmed.Load(), res.soldOut.Load(), res.failed.Load())
	fmt.Printf("tickets booked=%d inventory consumed=%d\n", booked, sold)
	res.printLatencies()

	if booked > int64(before) || booked != sold {
		fmt.Println("OVERSELL OR LOST UPDATE DETECTED")
		os.Exit(2)
	}
}

func (r *results) record(status int, latency time.Duration) {
	switch status {
	case http.StatusOK:
		r.confirmed.Add(1)
	case http.StatusConflict:
		r.soldOut.Add(1)
	default:
		r.failed.Add(1)
	}

	r.mu.Lock()
	r.latencies = append(r.latencies, latency)
	r.mu.Unlock()
}

func (r *results) printLatencies() {
	if len(r.latencies) == 0 {
		return
	}

	sort.Slice(r.latencies, func(i, j int) bool { return r.latencies[i] < r.latencies[j] })
	pct := func(p int) time.Duration { return r.latencies[len(r.latencies)*p/100] }

	fmt.Printf("latency p50=%v p90=%v p99=%v max=%v\n", pct(50), pct(90), pct(99), r.latencies[len(r.latencies)-1])
}

// checkout walks one session from selection to payment and returns the
// status of the pay call, or of the first step that failed.
func checkout(client *http.Client, cfg config, n int) int {
	var session dto.SessionResponse
	status, err := call(client, http.MethodPost, cfg.host+"/api/checkout/sessions", dto.StartSessionRequest{EventID: cfg.eventID}, &session)
	if err != nil || status != http.StatusCreated {
		return status
	}

	base := cfg.host + "/api/checkout/sessions/" + session.ID
	steps := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, "/selection", dto.SetQuantityRequest{TierID: cfg.tierID, Quantity: cfg.quantity}},
		{http.MethodPost, "/proceed", nil},
		{http.MethodPost, "/details", dto.DetailsRequest{Name: fmt.Sprintf("Shopper %d", n), Email: fmt.Sprintf("shopper%d@example.com", n)}},
		{http.MethodPost, "/pay", dto.PayRequest{Method: "bank_card", Token: "tok_visa"}},
	}

	for _, step := range steps {
		status, err = call(client, step.method, base+step.path, step.body, nil)
		if err != nil || status != http.StatusOK {
			return status
		}
	}

	return status
}

func available(client *http.Client, cfg config) (int, error) {
	var tiers []dto.TierResponse
	status, err := call(client, http.MethodGet, cfg.host+"/api/events/"+cfg.eventID+"/tiers", nil, &tiers)
	if err != nil {
		return 0, err
	}

	if status != http.StatusOK {
		return 0, fmt.Errorf("status %d", status)
	}

	for _, t := range tiers {
		if t.ID == cfg.tierID {
			return t.Available, nil
		}
	}

	return 0, fmt.Errorf("tier %s not found", cfg.tierID)
}

func call(client *http.Client, method, url string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}

	return resp.StatusCode, nil
}
