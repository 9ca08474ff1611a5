// Package store caches Index build results behind a thin Postgres table.
// It never mirrors GTFS rows the way the teacher's schema did: the feed
// directory is the source of truth, and this package only remembers
// whether a given feed content-hash was already built, its row counts and
// how long the build took. It does not store the index itself, so the
// index is rebuilt from the feed on every start, cache hit or not.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// BuildRecord is one remembered Index build.
type BuildRecord struct {
	Dataset       string
	ContentHash   string
	StopCount     int
	RouteCount    int
	TripCount     int
	TransferCount int
	BuildMillis   int64
	BuiltAt       time.Time
}

// Store wraps a connection pool to the build-record cache.
type Store struct {
	db *pgxpool.Pool
}

// Open parses dsn, opens a pool, and verifies connectivity.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "store: parsing DSN")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "store: creating pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "store: ping")
	}
	log.Println("store: connected to build-record cache")

	return &Store{db: pool}, nil
}

func (s *Store) Close() { s.db.Close() }

// EnsureSchema creates the raptor_builds table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS raptor_builds (
			content_hash   TEXT PRIMARY KEY,
			dataset        TEXT NOT NULL,
			stop_count     INTEGER NOT NULL,
			route_count    INTEGER NOT NULL,
			trip_count     INTEGER NOT NULL,
			transfer_count INTEGER NOT NULL,
			build_millis   BIGINT NOT NULL,
			built_at       TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "store: ensuring schema")
	}
	return nil
}

// Lookup returns the cached build record for contentHash, if any.
func (s *Store) Lookup(ctx context.Context, contentHash string) (*BuildRecord, bool, error) {
	var rec BuildRecord
	err := s.db.QueryRow(ctx, `
		SELECT content_hash, dataset, stop_count, route_count, trip_count, transfer_count, build_millis, built_at
		FROM raptor_builds WHERE content_hash = $1
	`, contentHash).Scan(
		&rec.ContentHash, &rec.Dataset, &rec.StopCount, &rec.RouteCount,
		&rec.TripCount, &rec.TransferCount, &rec.BuildMillis, &rec.BuiltAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "store: lookup")
	}
	return &rec, true, nil
}

// Save upserts a build record, keyed by content hash.
func (s *Store) Save(ctx context.Context, rec BuildRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO raptor_builds (content_hash, dataset, stop_count, route_count, trip_count, transfer_count, build_millis, built_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (content_hash) DO UPDATE SET
			dataset = EXCLUDED.dataset,
			stop_count = EXCLUDED.stop_count,
			route_count = EXCLUDED.route_count,
			trip_count = EXCLUDED.trip_count,
			transfer_count = EXCLUDED.transfer_count,
			build_millis = EXCLUDED.build_millis,
			built_at = EXCLUDED.built_at
	`, rec.ContentHash, rec.Dataset, rec.StopCount, rec.RouteCount, rec.TripCount, rec.TransferCount, rec.BuildMillis, rec.BuiltAt)
	if err != nil {
		return errors.Wrap(err, "store: save")
	}
	return nil
}

// ContentHash hashes the four feed files' contents so an unchanged
// dataset directory always hashes the same, regardless of file mtimes.
func ContentHash(baseDir string) (string, error) {
	h := sha256.New()
	for _, name := range []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"} {
		f, err := os.Open(filepath.Join(baseDir, name))
		if err != nil {
			return "", errors.Wrapf(err, "hashing %s", name)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", errors.Wrapf(err, "hashing %s", name)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
