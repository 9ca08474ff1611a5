package raptor

import (
	"runtime"
	"sync"

	"github.com/raptorway/transitraptor/internal/index"
)

// collectCandidateRoutes is Phase A: for every route touching a marked
// stop, record the earliest (leftmost) position of any marked stop on
// that route. Above phaseAParallelThreshold marked stops, the scan fans
// out across goroutines; the reduction is a per-route minimum, which is
// commutative, so the merged result never depends on goroutine scheduling.
func collectCandidateRoutes(idx *index.Index, marked []index.StopID) map[string]int {
	if len(marked) <= phaseAParallelThreshold {
		Q := make(map[string]int)
		collectCandidateRoutesRange(idx, marked, Q)
		return Q
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(marked) {
		workers = len(marked)
	}
	if workers < 1 {
		workers = 1
	}

	locals := make([]map[string]int, workers)
	chunk := (len(marked) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= len(marked) {
			locals[w] = map[string]int{}
			continue
		}
		end := start + chunk
		if end > len(marked) {
			end = len(marked)
		}

		local := make(map[string]int)
		locals[w] = local
		wg.Add(1)
		go func(stops []index.StopID, out map[string]int) {
			defer wg.Done()
			collectCandidateRoutesRange(idx, stops, out)
		}(marked[start:end], local)
	}
	wg.Wait()

	Q := make(map[string]int)
	for _, local := range locals {
		for route, pos := range local {
			if cur, ok := Q[route]; !ok || pos < cur {
				Q[route] = pos
			}
		}
	}
	return Q
}

func collectCandidateRoutesRange(idx *index.Index, stops []index.StopID, out map[string]int) {
	for _, m := range stops {
		for route := range idx.StopRoutes[m] {
			pos, ok := idx.StopPosition(route, m)
			if !ok {
				continue
			}
			if cur, exists := out[route]; !exists || pos < cur {
				out[route] = pos
			}
		}
	}
}

// EarliestTrip finds the earliest trip on routeID that can still be
// boarded at boardStop no earlier than boardTime. It is exported so
// callers (notably the CLI's self-check, mirroring the reference
// implementation's own exposed earliest_trip) can validate engine
// behavior directly against an index.
func EarliestTrip(idx *index.Index, routeID string, boardStop index.StopID, boardTime int32) string {
	return earliestTrip(idx, routeID, boardStop, boardTime)
}

// earliestTrip finds, among a route's trips, the one with the smallest
// departure time at boardStop that is still >= boardTime (the traveler
// cannot catch a trip that has already left). Ties on departure time are
// broken by trips.txt input order, matching the reference scan.
func earliestTrip(idx *index.Index, routeID string, boardStop index.StopID, boardTime int32) string {
	tripIDs := idx.RouteTrips[routeID]
	if len(tripIDs) <= earliestTripParallelThreshold {
		tripID, _, _ := scanEarliestTrip(idx, tripIDs, 0, boardStop, boardTime)
		return tripID
	}
	return earliestTripParallelScan(idx, tripIDs, boardStop, boardTime)
}

// scanEarliestTrip scans a contiguous slice of trip ids starting at
// baseIndex (the slice's offset within the route's full trip list, used
// to break ties by global input position) and returns the best candidate
// found, its departure time, and its position.
func scanEarliestTrip(idx *index.Index, tripIDs []string, baseIndex int, boardStop index.StopID, boardTime int32) (string, int32, int) {
	best := ""
	bestDep := Infinity
	bestPos := -1

	for i, tripID := range tripIDs {
		trip := idx.Trips[tripID]
		st, ok := trip.Stops[boardStop]
		if !ok {
			continue
		}
		if st.Departure < boardTime {
			continue
		}
		pos := baseIndex + i
		if st.Departure < bestDep || (st.Departure == bestDep && pos < bestPos) {
			bestDep = st.Departure
			best = tripID
			bestPos = pos
		}
	}
	return best, bestDep, bestPos
}

func earliestTripParallelScan(idx *index.Index, tripIDs []string, boardStop index.StopID, boardTime int32) string {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(tripIDs) {
		workers = len(tripIDs)
	}
	if workers < 1 {
		workers = 1
	}

	type candidate struct {
		tripID string
		dep    int32
		pos    int
	}
	results := make([]candidate, workers)
	chunk := (len(tripIDs) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= len(tripIDs) {
			results[w] = candidate{dep: Infinity, pos: -1}
			continue
		}
		end := start + chunk
		if end > len(tripIDs) {
			end = len(tripIDs)
		}

		w2 := w
		wg.Add(1)
		go func(slice []string, base int) {
			defer wg.Done()
			tripID, dep, pos := scanEarliestTrip(idx, slice, base, boardStop, boardTime)
			if tripID == "" {
				results[w2] = candidate{dep: Infinity, pos: -1}
				return
			}
			results[w2] = candidate{tripID: tripID, dep: dep, pos: pos}
		}(tripIDs[start:end], start)
	}
	wg.Wait()

	best := candidate{dep: Infinity, pos: -1}
	for _, c := range results {
		if c.tripID == "" {
			continue
		}
		if c.dep < best.dep || (c.dep == best.dep && c.pos < best.pos) {
			best = c
		}
	}
	return best.tripID
}
