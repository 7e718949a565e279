package s3

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxAttempts = 3
	baseDelay   = 200 * time.Millisecond
)

type Client struct {
	mc *minio.Client
}

func New(endpoint, accessKey, secretKey string, useSSL bool) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc}, nil
}

// FetchSignatureDB downloads the signature database object to destPath so
// the loader can read it like a local file.
func (c *Client) FetchSignatureDB(ctx context.Context, bucket, key, destPath string) error {
	return retry(ctx, maxAttempts, baseDelay, func() error {
		obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		defer obj.Close()

		out, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer out.Close()

		if _, err := io.Copy(out, obj); err != nil {
			return fmt.Errorf("download %s/%s: %w", bucket, key, err)
		}
		return nil
	})
}

// UploadFile pushes a local file (findings log, signature db) to object
// storage as text.
func (c *Client) UploadFile(ctx context.Context, bucket, key, filePath string) error {
	return retry(ctx, maxAttempts, baseDelay, func() error {
		_, err := c.mc.FPutObject(ctx, bucket, key, filePath, minio.PutObjectOptions{
			ContentType: "text/plain",
		})
		return err
	})
}

// retry executes fn up to maxAttempts times with jittered exponential
// backoff. Base delay doubles on each attempt; jitter of 0-50% of the
// current delay avoids thundering herd.
func retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return lastErr
		}
		jitter := time.Duration(rand.Int63n(int64(delay / 2)))
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}
	return lastErr
}
