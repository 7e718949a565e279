// sigdbcheck validates a signature database file and optionally pushes it to
// the object-storage location scanners fetch from.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	s3c "github.com/yourorg/sigscan/internal/s3"
	"github.com/yourorg/sigscan/internal/signature"
)

func main() {
	var (
		dbPath = flag.String("db", "", "path to the signature database file")
		push   = flag.Bool("push", false, "upload the validated db to SIGDB_BUCKET/SIGDB_KEY")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	sigs, err := signature.Load(*dbPath)
	if err != nil {
		log.Fatalf("invalid signature db: %v", err)
	}
	if sigs.Len() == 0 {
		log.Fatalf("%s contains no usable signatures", *dbPath)
	}
	log.Printf("%s: %d signatures, max pattern %d bytes", *dbPath, sigs.Len(), sigs.MaxPatternLen())
	for _, sig := range sigs.Signatures() {
		log.Printf("  %s (%dB)", sig.Identifier, len(sig.Pattern))
	}

	if !*push {
		return
	}

	endpoint := os.Getenv("S3_ENDPOINT")
	bucket := os.Getenv("SIGDB_BUCKET")
	key := os.Getenv("SIGDB_KEY")
	if endpoint == "" || bucket == "" || key == "" {
		log.Fatal("S3_ENDPOINT, SIGDB_BUCKET and SIGDB_KEY are required for -push")
	}
	client, err := s3c.New(endpoint, os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_SECRET_KEY"),
		os.Getenv("S3_USE_SSL") == "true")
	if err != nil {
		log.Fatal(err)
	}
	if err := client.UploadFile(context.Background(), bucket, key, *dbPath); err != nil {
		log.Fatalf("push signature db: %v", err)
	}
	log.Printf("pushed %s to %s/%s", *dbPath, bucket, key)
}
