// Benchmark tool driving the karma engine's surprise-box endpoint.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8000 -requests 10000
//
// This tool:
//  1. Generates surprise-box checks over a configurable user/date pool
//  2. Sends them to the engine with concurrent workers
//  3. Reports latency percentiles and the decision status mix
//  4. Verifies the exactly-once property: no (user, date) pair may be
//     delivered more than once, no matter how many times it is checked
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// CheckRequest is the engine's surprise-box request format.
type CheckRequest struct {
	UserID  string         `json:"user_id"`
	Date    string         `json:"date"`
	Metrics map[string]int `json:"daily_metrics"`
}

// CheckResponse is the engine's decision format.
type CheckResponse struct {
	Status      string `json:"status"`
	Unlocked    bool   `json:"surprise_unlocked"`
	BoxType     string `json:"box_type"`
	Rarity      string `json:"rarity"`
	RewardKarma int    `json:"reward_karma"`
	Reason      string `json:"reason"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	Delivered       int64
	Missed          int64
	AlreadyReceived int64
	DecisionErrors  int64 // status=error decisions
	TransportErrors int64 // network failures and non-200 responses

	TotalProcessed int64
	KarmaGranted   int64
}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8000", "Karma engine base URL")
	requests := flag.Int("requests", 10000, "Total checks to send")
	users := flag.Int("users", 500, "User pool size")
	days := flag.Int("days", 3, "Date pool size (days back from today)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each decision")
	flag.Parse()

	if *requests <= 0 || *users <= 0 || *days <= 0 || *workers <= 0 {
		fmt.Println("Usage: benchmark [-url http://localhost:8000] [-requests N] [-users N] [-days N] [-workers N]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        KARMA ENGINE BENCHMARK - Surprise Box Checks           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nEngine URL:  %s\n", *baseURL)
	fmt.Printf("Requests:    %d\n", *requests)
	fmt.Printf("User pool:   %d\n", *users)
	fmt.Printf("Date pool:   %d days\n", *days)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Println()

	// Check the engine is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: engine not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the engine is running:")
		fmt.Println("  go run cmd/karma-engine/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Engine is healthy")

	// With requests well above users x days, the same (user, date)
	// pair gets checked repeatedly, which is exactly what exercises
	// the exactly-once ledger commit.
	pairs := *users * *days
	fmt.Printf("✓ %d distinct (user, date) pairs, ~%.1f checks per pair\n",
		pairs, float64(*requests)/float64(pairs))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics, latencies, delivered := runBenchmark(*baseURL, *requests, *users, *days, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, latencies, delivered, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func randomMetrics(rng *rand.Rand) map[string]int {
	return map[string]int{
		"login_streak":       rng.Intn(8),
		"posts_created":      rng.Intn(5),
		"comments_written":   rng.Intn(6),
		"upvotes_received":   rng.Intn(20),
		"quizzes_completed":  rng.Intn(4),
		"buddies_messaged":   rng.Intn(6),
		"karma_spent":        rng.Intn(25),
		"karma_earned_today": rng.Intn(30),
	}
}

// runBenchmark fires requests checks and returns aggregate metrics,
// every observed latency, and the per-pair delivered counts.
func runBenchmark(baseURL string, requests, users, days, numWorkers int, verbose bool) (*Metrics, []time.Duration, *sync.Map) {
	metrics := &Metrics{}
	delivered := &sync.Map{} // "user|date" -> *int64

	today := time.Now().UTC()

	work := make(chan CheckRequest, 100)
	var wg sync.WaitGroup

	latencyLists := make([][]time.Duration, numWorkers)

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for req := range work {
				start := time.Now()
				result, err := checkSurpriseBox(client, baseURL, req)
				elapsed := time.Since(start)

				latencyLists[n] = append(latencyLists[n], elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TransportErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s %s -> %v\n", req.UserID, req.Date, err)
					}
					continue
				}

				switch result.Status {
				case "delivered":
					atomic.AddInt64(&metrics.Delivered, 1)
					atomic.AddInt64(&metrics.KarmaGranted, int64(result.RewardKarma))

					key := req.UserID + "|" + req.Date
					count, _ := delivered.LoadOrStore(key, new(int64))
					atomic.AddInt64(count.(*int64), 1)
				case "missed":
					atomic.AddInt64(&metrics.Missed, 1)
				case "already_received":
					atomic.AddInt64(&metrics.AlreadyReceived, 1)
				default:
					atomic.AddInt64(&metrics.DecisionErrors, 1)
				}

				if verbose {
					fmt.Printf("%-14s %s | %-16s | %-22s | karma %3d | %v\n",
						req.UserID, req.Date, result.Status, result.BoxType,
						result.RewardKarma, elapsed.Round(time.Microsecond))
				}
			}
		}(i)
	}

	// Send work
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < requests; i++ {
		work <- CheckRequest{
			UserID:  fmt.Sprintf("bench-user-%d", rng.Intn(users)),
			Date:    today.AddDate(0, 0, -rng.Intn(days)).Format("2006-01-02"),
			Metrics: randomMetrics(rng),
		}
	}
	close(work)

	wg.Wait()

	var latencies []time.Duration
	for _, list := range latencyLists {
		latencies = append(latencies, list...)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	return metrics, latencies, delivered
}

func checkSurpriseBox(client *http.Client, baseURL string, req CheckRequest) (*CheckResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/check-surprise-box", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func printResults(m *Metrics, latencies []time.Duration, delivered *sync.Map, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 STATUS MIX\n")
	fmt.Printf("   Total Processed:   %d\n", m.TotalProcessed)
	fmt.Printf("   Delivered:         %d\n", m.Delivered)
	fmt.Printf("   Missed:            %d\n", m.Missed)
	fmt.Printf("   Already Received:  %d\n", m.AlreadyReceived)
	fmt.Printf("   Decision Errors:   %d\n", m.DecisionErrors)
	fmt.Printf("   Transport Errors:  %d\n", m.TransportErrors)
	fmt.Printf("   Karma Granted:     %d\n", m.KarmaGranted)

	// Exactly-once audit: every delivered pair must have count == 1.
	var pairs, violations int64
	delivered.Range(func(key, value any) bool {
		pairs++
		if atomic.LoadInt64(value.(*int64)) > 1 {
			violations++
			fmt.Printf("   ⚠️  VIOLATION: %s delivered %d times\n", key, atomic.LoadInt64(value.(*int64)))
		}
		return true
	})

	fmt.Printf("\n🔒 EXACTLY-ONCE AUDIT\n")
	fmt.Printf("   Pairs Rewarded:    %d\n", pairs)
	fmt.Printf("   Double Deliveries: %d\n", violations)
	if violations == 0 {
		fmt.Println("   ✅ No (user, date) pair was delivered twice")
	} else {
		fmt.Println("   ❌ Exactly-once property violated!")
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if len(latencies) > 0 {
		fmt.Printf("   Throughput:       %.2f checks/sec\n", float64(m.TotalProcessed)/duration.Seconds())
		fmt.Printf("   Latency p50:      %v\n", percentile(latencies, 0.50).Round(time.Microsecond))
		fmt.Printf("   Latency p90:      %v\n", percentile(latencies, 0.90).Round(time.Microsecond))
		fmt.Printf("   Latency p99:      %v\n", percentile(latencies, 0.99).Round(time.Microsecond))
		fmt.Printf("   Latency max:      %v\n", latencies[len(latencies)-1].Round(time.Microsecond))
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if violations == 0 {
		fmt.Println("   ✅ Ledger commit is race-safe under this load")
	} else {
		fmt.Println("   ❌ Ledger commit lost a race - investigate before shipping")
	}
	if m.TransportErrors == 0 {
		fmt.Println("   ✅ No transport errors")
	} else {
		fmt.Printf("   ⚠️  %d transport errors - engine may be overloaded\n", m.TransportErrors)
	}

	fmt.Println()

	if violations > 0 {
		os.Exit(1)
	}
}
