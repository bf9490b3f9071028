// Command poolbench drives a resource pool under configurable concurrent load
// and reports counter snapshots.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/coachpo/respool/config"
	"github.com/coachpo/respool/core/pool"
	"github.com/coachpo/respool/lib/telemetry"
)

const (
	defaultConfigPath        = "config/respool.yaml"
	benchLoggerPrefix        = "poolbench "
	telemetryShutdownTimeout = 5 * time.Second
	statsInterval            = 5 * time.Second
)

type benchCounters struct {
	acquired  atomic.Int64
	timeouts  atomic.Int64
	rejected  atomic.Int64
	poolStats pool.Stats
}

func main() {
	cfgPath := flag.String("config", defaultConfigPath, "path to YAML configuration")
	duration := flag.Duration("duration", 30*time.Second, "how long to run the load")
	tokens := flag.Int("tokens", 0, "pool capacity override (0 uses config)")
	workers := flag.Int("workers", 0, "concurrent caller override (0 uses config)")
	flag.Parse()

	logger := log.New(os.Stderr, benchLoggerPrefix, log.LstdFlags|log.Lmsgprefix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, loadedFromFile, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if !loadedFromFile {
		logger.Printf("configuration file not found, using defaults")
	}
	cfg = cfg.FromEnv()
	if *tokens > 0 {
		cfg.Pool.InitialCapacity = *tokens
	}
	if *workers > 0 {
		cfg.Pool.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	_, telemetryShutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatalf("initialise telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	initial := make([]int, cfg.Pool.InitialCapacity)
	for i := range initial {
		initial[i] = i
	}
	p := pool.New(initial)
	telemetry.ObservePool("bench", p.Snapshot)

	logger.Printf("starting: tokens=%d workers=%d duration=%s rate=%v",
		cfg.Pool.InitialCapacity, cfg.Pool.Workers, *duration, cfg.Pool.Rate)

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	var limiter *rate.Limiter
	if cfg.Pool.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Pool.Rate), cfg.Pool.Workers)
	}

	counters := new(benchCounters)
	var wg conc.WaitGroup
	for i := 0; i < cfg.Pool.Workers; i++ {
		wg.Go(func() { runWorker(runCtx, p, cfg.Pool.AcquireTimeout, limiter, counters) })
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for running := true; running; {
		select {
		case <-runCtx.Done():
			running = false
		case <-ticker.C:
			logSnapshot(logger, p.Snapshot())
		}
	}
	wg.Wait()

	drained := p.Drain()
	logger.Printf("drained %d free tokens", len(drained))

	counters.poolStats = p.Snapshot()
	report := map[string]any{
		"acquired": counters.acquired.Load(),
		"timeouts": counters.timeouts.Load(),
		"rejected": counters.rejected.Load(),
		"final":    counters.poolStats,
	}
	if err := pool.WriteJSON(os.Stdout, report); err != nil {
		logger.Fatalf("encode report: %v", err)
	}
	os.Stdout.WriteString("\n")
}

func runWorker(ctx context.Context, p *pool.Pool[int], acquireTimeout time.Duration, limiter *rate.Limiter, counters *benchCounters) {
	for {
		if ctx.Err() != nil {
			return
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		tok, err := p.AcquireTimeout(ctx, acquireTimeout)
		switch {
		case err == nil:
			counters.acquired.Add(1)
			time.Sleep(time.Millisecond) // simulated hold time
			p.Release(tok)
		case errors.Is(err, pool.ErrTimeout):
			counters.timeouts.Add(1)
		case errors.Is(err, pool.ErrClosed):
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		default:
			counters.rejected.Add(1)
		}
	}
}

func logSnapshot(logger *log.Logger, s pool.Stats) {
	logger.Printf("snapshot: available=%d size=%d pending=%d", s.Available, s.Size, s.Pending)
}
