// Worker runs the periodic maintenance sweeps: expired blacklist entries are
// purged and active sessions past their expiry are deactivated. Set
// DATABASE_URL; WORKER_SWEEP_INTERVAL controls the cadence.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	blacklistrepo "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/blacklist/repository"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/config"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/db"
	sessionrepo "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/session/repository"
	otelsetup "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "authcore-worker", false)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	blacklist := blacklistrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	interval := cfg.SweepInterval()
	log.Printf("worker: sweeping every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, blacklist, sessions)
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
			sweep(ctx, blacklist, sessions)
		}
	}
}

func sweep(ctx context.Context, blacklist *blacklistrepo.PostgresRepository, sessions *sessionrepo.PostgresRepository) {
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	purged, err := blacklist.PurgeExpired(sweepCtx)
	if err != nil {
		log.Printf("worker: purge blacklist: %v", err)
	} else if purged > 0 {
		log.Printf("worker: purged %d expired blacklist entries", purged)
	}

	swept, err := sessions.SweepExpired(sweepCtx)
	if err != nil {
		log.Printf("worker: sweep sessions: %v", err)
	} else if swept > 0 {
		log.Printf("worker: deactivated %d expired sessions", swept)
	}
}
