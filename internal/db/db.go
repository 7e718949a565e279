package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/sigscan/internal/scanner"
)

const batchSize = 100

type Store struct{ Pool *pgxpool.Pool }

func Open(ctx context.Context, url string) (*Store, error) {
	p, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: p}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS scan_runs (
  id UUID PRIMARY KEY,
  root TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('running','done','failed')),
  started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  finished_at TIMESTAMPTZ,
  duration_ms BIGINT,
  files INTEGER,
  dirs INTEGER,
  flagged INTEGER,
  read_failures INTEGER,
  error_msg TEXT
);

CREATE TABLE IF NOT EXISTS scan_findings (
  run_id UUID NOT NULL,
  path TEXT NOT NULL,
  signature TEXT NOT NULL,
  PRIMARY KEY (run_id, path)
);

CREATE INDEX IF NOT EXISTS scan_findings_signature_idx ON scan_findings (signature);
`)
	return err
}

// StartRun records a scan run in 'running' state.
func (s *Store) StartRun(ctx context.Context, id, root string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO scan_runs (id, status, root)
		VALUES ($1::uuid, 'running', $2)
	`, id, root)
	return err
}

// FinishRun marks a run done and stores its aggregate stats.
func (s *Store) FinishRun(ctx context.Context, id string, st scanner.Stats) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE scan_runs
		SET status='done', finished_at=now(),
		    duration_ms=$2, files=$3, dirs=$4, flagged=$5, read_failures=$6
		WHERE id=$1::uuid
	`, id, st.Duration.Milliseconds(), st.Files, st.Dirs, st.Flagged, st.Failures)
	return err
}

func (s *Store) MarkRunFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE scan_runs
		SET status='failed', finished_at=now(), error_msg=$2
		WHERE id=$1::uuid
		  AND status='running'
	`, id, errMsg)
	return err
}

// ReplaceFindings deletes any previous findings for the run and batch-inserts
// the snapshot. Inserts are grouped into multi-value statements of up to
// batchSize rows to avoid per-row round trips on large scans.
func (s *Store) ReplaceFindings(ctx context.Context, runID string, findings map[string]string) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM scan_findings WHERE run_id=$1::uuid`, runID); err != nil {
		return err
	}

	paths := make([]string, 0, len(findings))
	for p := range findings {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		chunk := paths[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO scan_findings (run_id, path, signature) VALUES `)
		args := make([]any, 0, 1+2*len(chunk))
		args = append(args, runID)
		for i, p := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "($1::uuid, $%d, $%d)", len(args)+1, len(args)+2)
			args = append(args, p, findings[p])
		}
		if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("batch insert findings: %w", err)
		}
	}

	return tx.Commit(ctx)
}
