// Command pgpool demonstrates binding live postgres connections to the pool
// engine through the registry layer.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sourcegraph/conc"

	"github.com/coachpo/respool/core/registry"
)

const (
	pgLoggerPrefix = "pgpool "
	closeTimeout   = 5 * time.Second
)

func main() {
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
	conns := flag.Int("conns", 4, "pooled connections to open")
	workers := flag.Int("workers", 16, "concurrent query workers")
	queries := flag.Int("queries", 100, "queries per worker")
	flag.Parse()

	logger := log.New(os.Stderr, pgLoggerPrefix, log.LstdFlags|log.Lmsgprefix)
	if *dsn == "" {
		logger.Fatal("no DSN provided: set -dsn or DATABASE_URL")
	}
	if *conns <= 0 || *workers <= 0 {
		logger.Fatal("conns and workers must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pooled := make([]*pgx.Conn, 0, *conns)
	for i := 0; i < *conns; i++ {
		conn, err := pgx.Connect(ctx, *dsn)
		if err != nil {
			logger.Fatalf("connect %d/%d: %v", i+1, *conns, err)
		}
		pooled = append(pooled, conn)
	}
	logger.Printf("opened %d connections", len(pooled))

	reg := registry.New(pooled, registry.WithUnpin(func(conn *pgx.Conn) {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := conn.Close(closeCtx); err != nil {
			logger.Printf("close connection: %v", err)
		}
	}))

	var completed, failed atomic.Int64
	start := time.Now()

	var wg conc.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Go(func() {
			for i := 0; i < *queries; i++ {
				if ctx.Err() != nil {
					return
				}
				lease, err := reg.Acquire(ctx)
				if err != nil {
					return
				}
				var one int
				if err := lease.Value.QueryRow(ctx, "select 1").Scan(&one); err != nil {
					failed.Add(1)
				} else {
					completed.Add(1)
				}
				if err := reg.Release(lease); err != nil {
					logger.Printf("release lease %s: %v", lease.ID, err)
					return
				}
			}
		})
	}
	wg.Wait()

	elapsed := time.Since(start)
	stats := reg.Snapshot()
	logger.Printf("completed=%d failed=%d elapsed=%s available=%d size=%d",
		completed.Load(), failed.Load(), elapsed.Round(time.Millisecond), stats.Available, stats.Size)

	freed := reg.Close()
	logger.Printf("closed %d pooled connections", len(freed))
}
