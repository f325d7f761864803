package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type identityState struct {
	identity string
	code     string
	mu       sync.Mutex
}

func main() {
	var (
		identities  = flag.Int("identities", 50000, "number of identities to issue codes for")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		backend     = flag.String("backend", "memory", "store backend: memory or redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		configPath  = flag.String("config", "", "optional YAML engine config")
		verbose     = flag.Bool("v", false, "log engine events to stderr")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identities, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	cfg := goOTP.DefaultConfig()
	if *configPath != "" {
		loaded, err := goOTP.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(2)
		}
		cfg = loaded
	}
	// Wrong-code traffic must not lock identities out of the verify phase.
	cfg.Policy.MaxFailedAttempts = 1 << 20
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	if *backend == "memory" {
		cfg.Store.Backend = goOTP.StoreMemory
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	builder := goOTP.New().WithConfig(cfg).WithLogger(logger)

	if *backend == "redis" {
		client, cleanup, err := connectRedis(*redisAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer cleanup()
		builder = builder.WithRedis(client)
	} else if *backend != "memory" {
		fmt.Fprintf(os.Stderr, "unknown backend %q\n", *backend)
		os.Exit(2)
	}

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	categories := goOTP.Categories()

	states := make([]identityState, *identities)
	fmt.Printf("issuing %d codes...\n", *identities)
	startSeed := time.Now()
	for i := range states {
		states[i].identity = fmt.Sprintf("user-%d@farm.example", i)
		code, err := engine.IssueCode(ctx, states[i].identity, categories[i%len(categories)])
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i].code = code
	}
	fmt.Printf("issued in %s\n", time.Since(startSeed).Round(time.Millisecond))

	mismatchStats := runPhase(states, *ops, *concurrency, 7919, func(s *identityState) bool {
		return !engine.VerifyCode(ctx, s.identity, "not-a-code")
	})
	cycleStats := runPhase(states, *ops, *concurrency, 6151, func(s *identityState) bool {
		if !engine.VerifyCode(ctx, s.identity, s.code) {
			return false
		}
		next, err := engine.IssueStandardCode(ctx, s.identity)
		if err != nil {
			return false
		}
		s.code = next
		return true
	})

	fmt.Println("---- results ----")
	printStats("verify-mismatch", mismatchStats)
	printStats("verify-reissue", cycleStats)

	if stats, err := engine.Statistics(ctx); err == nil {
		fmt.Printf("state: active=%d expired=%d locked=%d attempt_records=%d\n",
			stats.ActiveCodes, stats.ExpiredCodes, stats.LockedIdentities, stats.AttemptRecords)
	}
	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: issued=%d verified=%d mismatches=%d latency_buckets=%v\n",
		snap.Counters[goOTP.MetricIssueSuccess],
		snap.Counters[goOTP.MetricVerifySuccess],
		snap.Counters[goOTP.MetricVerifyMismatch],
		snap.Histograms[goOTP.MetricVerifyLatency],
	)
}

func connectRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runPhase executes op against random identities. The per-identity mutex
// keeps a worker's verify and reissue paired with the code it last saw.
func runPhase(states []identityState, ops, concurrency int, seed int64, op func(*identityState) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				t0 := time.Now()
				ok := op(state)
				d := time.Since(t0)
				state.mu.Unlock()

				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
