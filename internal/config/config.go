package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	ScanRoot    string
	SignatureDB string
	LogDir      string
	Workers     int
	LogBuffer   int

	// Optional Postgres persistence of scan runs and findings.
	DatabaseURL string

	// Optional object storage: signature-db source and findings upload.
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool
	SigDBBucket   string
	SigDBKey      string
	ReportsBucket string
}

func getBool(key, def string) bool {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func Load() Config {
	cfg := Config{
		ScanRoot:      os.Getenv("SCAN_ROOT"),
		SignatureDB:   os.Getenv("SIGNATURE_DB"),
		LogDir:        os.Getenv("LOG_DIR"),
		Workers:       getInt("SCAN_CONCURRENCY", 0), // 0 = one worker per CPU
		LogBuffer:     getInt("LOG_BUFFER", 0),       // 0 = sink default
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:      getBool("S3_USE_SSL", "false"),
		SigDBBucket:   os.Getenv("SIGDB_BUCKET"),
		SigDBKey:      os.Getenv("SIGDB_KEY"),
		ReportsBucket: os.Getenv("REPORTS_BUCKET"),
	}
	// quick sanity
	if cfg.ScanRoot == "" {
		log.Fatal("SCAN_ROOT is required")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	fetchesDB := cfg.SigDBBucket != "" && cfg.SigDBKey != ""
	if cfg.SignatureDB == "" && !fetchesDB {
		log.Fatal("SIGNATURE_DB is required unless SIGDB_BUCKET and SIGDB_KEY are set")
	}
	if fetchesDB && cfg.S3Endpoint == "" {
		log.Fatal("S3_ENDPOINT is required when fetching the signature db from object storage")
	}
	return cfg
}
