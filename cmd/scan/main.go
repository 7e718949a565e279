package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/yourorg/sigscan/internal/config"
	"github.com/yourorg/sigscan/internal/db"
	"github.com/yourorg/sigscan/internal/logsink"
	"github.com/yourorg/sigscan/internal/registry"
	s3c "github.com/yourorg/sigscan/internal/s3"
	"github.com/yourorg/sigscan/internal/scanner"
	"github.com/yourorg/sigscan/internal/signature"
)

func main() {
	// Load environment variables from .env files if present. This helps local dev.
	// Try current directory and one level up (in case run from cmd/scan).
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var objects *s3c.Client
	if cfg.S3Endpoint != "" {
		var err error
		objects, err = s3c.New(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL)
		if err != nil {
			log.Fatal(err)
		}
	}

	dbPath := cfg.SignatureDB
	if cfg.SigDBBucket != "" && cfg.SigDBKey != "" {
		dbPath = filepath.Join(os.TempDir(), "sigscan-signatures.db")
		if err := objects.FetchSignatureDB(ctx, cfg.SigDBBucket, cfg.SigDBKey, dbPath); err != nil {
			log.Fatalf("fetch signature db: %v", err)
		}
	}

	sigs, err := signature.Load(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d signatures (max pattern %dB) from %s", sigs.Len(), sigs.MaxPatternLen(), dbPath)

	sink, err := logsink.OpenBuffered(filepath.Join(cfg.LogDir, "performance.log"), cfg.LogBuffer)
	if err != nil {
		log.Fatal(err)
	}

	runID := uuid.NewString()
	var store *db.Store
	if cfg.DatabaseURL != "" {
		store, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		if err := store.Ping(ctx); err != nil {
			log.Fatal(err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal(err)
		}
		if err := store.StartRun(ctx, runID, cfg.ScanRoot); err != nil {
			log.Printf("run %s: start record failed: %v", runID, err)
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	risk := registry.NewRisk()
	sc := scanner.New(sigs, risk, sink, workers)
	log.Printf("scan starting id=%s root=%s concurrency=%d", runID, cfg.ScanRoot, workers)

	stats, scanErr := sc.Run(ctx, cfg.ScanRoot)

	// All workers have joined; drain the sink before reporting.
	if err := sink.Close(); err != nil {
		log.Printf("run %s: log sink close: %v", runID, err)
	}
	if n := sink.WriteErrors(); n > 0 {
		log.Printf("run %s: %d log writes lost", runID, n)
	}

	if scanErr != nil {
		if store != nil {
			_ = store.MarkRunFailed(context.Background(), runID, scanErr.Error())
		}
		log.Fatalf("scan failed: %v", scanErr)
	}

	snap := risk.Snapshot()
	findingsPath := filepath.Join(cfg.LogDir, "findings.log")
	if err := registry.WriteFindings(findingsPath, snap); err != nil {
		log.Fatal(err)
	}

	// Persistence and upload are telemetry: failures are logged, never fatal.
	if store != nil {
		if err := store.ReplaceFindings(ctx, runID, snap); err != nil {
			log.Printf("run %s: persist findings: %v", runID, err)
		}
		if err := store.FinishRun(ctx, runID, stats); err != nil {
			log.Printf("run %s: finish record: %v", runID, err)
		}
	}
	if objects != nil && cfg.ReportsBucket != "" {
		key := fmt.Sprintf("findings/%s.log", runID)
		if err := objects.UploadFile(ctx, cfg.ReportsBucket, key, findingsPath); err != nil {
			log.Printf("run %s: upload findings: %v", runID, err)
		} else {
			log.Printf("run %s: findings uploaded to %s/%s", runID, cfg.ReportsBucket, key)
		}
	}

	log.Printf("run %s: %d files, %d dirs, %d flagged, %d read failures",
		runID, stats.Files, stats.Dirs, stats.Flagged, stats.Failures)
	fmt.Printf("Total runtime: %v\n", stats.Duration)
}
