package main

import (
	"fmt"
	"math/rand"

	"github.com/raptorway/transitraptor/internal/feed"
	"github.com/raptorway/transitraptor/internal/index"
	"github.com/raptorway/transitraptor/internal/raptor"
)

// runSelfChecks re-derives a handful of facts about idx independently and
// asserts they agree, mirroring the reference implementation's own
// conduct_unit_tests: a build-time sanity pass, not a substitute for the
// package test suites.
func runSelfChecks(tables *feed.Tables, idx *index.Index) error {
	if len(tables.Stops) != len(idx.StopCoords) {
		return fmt.Errorf("self-check: stops.txt has %d rows, StopCoords has %d entries", len(tables.Stops), len(idx.StopCoords))
	}
	if len(tables.Stops) != len(idx.Transfers) {
		return fmt.Errorf("self-check: stops.txt has %d rows, Transfers has %d entries", len(tables.Stops), len(idx.Transfers))
	}
	fmt.Println("self-check passed: CSV row counts match built indices")

	rng := rand.New(rand.NewSource(1))
	stopIDs := idx.StopIDs
	for i := 0; i < 5 && len(stopIDs) > 0; i++ {
		stop := stopIDs[rng.Intn(len(stopIDs))]
		routes := idx.StopRoutes[stop]
		if len(routes) == 0 {
			return fmt.Errorf("self-check: stop %d has no routes", stop)
		}
		for route := range routes {
			if _, ok := idx.StopPosition(route, stop); !ok {
				return fmt.Errorf("self-check: route %s does not list stop %d in RouteStops", route, stop)
			}
		}
	}
	fmt.Println("self-check passed: StopRoutes entries validated for 5 random stops")

	for route, stops := range idx.RouteStops {
		if len(stops) == 0 {
			continue
		}
		boardStop := stops[0]
		found := raptor.EarliestTrip(idx, route, boardStop, 0)
		if found == "" {
			return fmt.Errorf("self-check: route %s has no trip departing its first stop at or after time 0", route)
		}
		break
	}
	fmt.Println("self-check passed: earliest_trip returned a trip id for a sampled route")

	fmt.Println("ALL SELF-CHECKS PASSED")
	return nil
}
