package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/raptorway/transitraptor/internal/config"
	"github.com/raptorway/transitraptor/internal/httpapi"
	"github.com/raptorway/transitraptor/internal/index"
	"github.com/raptorway/transitraptor/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("loading config:", err)
	}

	ctx := context.Background()

	var cache *store.Store
	if cfg.Postgres.Enabled() {
		cache, err = store.Open(ctx, cfg.Postgres.DSN())
		if err != nil {
			log.Fatal("connecting to build-record cache:", err)
		}
		defer cache.Close()

		if err := cache.EnsureSchema(ctx); err != nil {
			log.Fatal("preparing build-record cache schema:", err)
		}
	}

	idx, err := buildIndex(ctx, cfg.Routing.Dataset, cache)
	if err != nil {
		log.Fatal("building index:", err)
	}
	log.Printf("index ready: %d stops, %d routes", len(idx.StopIDs), len(idx.RouteStops))

	handler := httpapi.NewServer(idx)

	log.Printf("server starting on %s", cfg.Server.Addr())
	if err := http.ListenAndServe(cfg.Server.Addr(), handler); err != nil {
		log.Fatal(err)
	}
}

// buildIndex builds the index from dataset, consulting the build-record
// cache first when one is configured. A cache hit is only logged: the
// index is still rebuilt in memory (the cache never stores the index
// itself, only that a given content hash previously built cleanly, with
// its counts and build time), and the new build's record is saved.
func buildIndex(ctx context.Context, dataset string, cache *store.Store) (*index.Index, error) {
	start := time.Now()

	var contentHash string
	if cache != nil {
		hash, err := store.ContentHash(dataset)
		if err != nil {
			return nil, err
		}
		contentHash = hash

		if rec, ok, err := cache.Lookup(ctx, contentHash); err != nil {
			log.Printf("build-record cache lookup failed: %v", err)
		} else if ok {
			log.Printf("build-record cache hit: dataset last built in %dms, %d stops", rec.BuildMillis, rec.StopCount)
		}
	}

	idx, err := index.Build(dataset)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		transferCount := 0
		for _, ts := range idx.Transfers {
			transferCount += len(ts)
		}
		rec := store.BuildRecord{
			Dataset:       dataset,
			ContentHash:   contentHash,
			StopCount:     len(idx.StopCoords),
			RouteCount:    len(idx.RouteStops),
			TripCount:     len(idx.Trips),
			TransferCount: transferCount,
			BuildMillis:   time.Since(start).Milliseconds(),
			BuiltAt:       time.Now(),
		}
		if err := cache.Save(ctx, rec); err != nil {
			log.Printf("build-record cache save failed: %v", err)
		}
	}

	return idx, nil
}
