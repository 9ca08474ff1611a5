package index

import (
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/raptorway/transitraptor/internal/feed"
	"github.com/raptorway/transitraptor/internal/timefmt"
)

const (
	// EarthRadiusMeters is the haversine sphere radius used for the
	// transfer graph.
	EarthRadiusMeters = 6_371_000.0
	// TransferRadiusMeters bounds which stop pairs get a walking edge.
	TransferRadiusMeters = 1_500.0
	// WalkMetersPerSecond is the assumed pedestrian speed.
	WalkMetersPerSecond = 1.4
)

// mergedRow is the join product of stop_times x trips described in the
// spec's Route/Stop index construction (§4.1.2 step 2).
type mergedRow struct {
	RouteID      string
	TripID       string
	StopID       StopID
	StopSequence int
	Arrival      int32
	Departure    int32
}

// Build reads baseDir's four GTFS-style tables and constructs a fully
// populated, consistent Index, or fails with a *feed.Error. This is the
// Index Builder's public contract: Build(baseDir) -> Index.
func Build(baseDir string) (*Index, error) {
	tables, err := feed.Load(baseDir)
	if err != nil {
		return nil, err
	}
	return BuildFromTables(tables)
}

// BuildFromTables runs the Route/Stop join, per-trip schedule construction,
// and transfer-graph computation over already-parsed tables. Split out from
// Build so tests and the CLI (which keeps the parsed tables for its
// self-checks) can supply in-memory tables directly.
func BuildFromTables(t *feed.Tables) (*Index, error) {
	stopCoords, stopIDs, err := buildStopCoords(t.Stops)
	if err != nil {
		return nil, err
	}

	tripToRoute, err := buildTripToRoute(t.Trips)
	if err != nil {
		return nil, err
	}

	merged, err := mergeStopTimesTrips(t.StopTimes, tripToRoute, stopCoords)
	if err != nil {
		return nil, err
	}

	sortMerged(merged)

	routeStops, stopRoutes := buildRouteStops(merged)
	routeStopIndex := buildRouteStopIndex(routeStops)
	routeTrips, err := buildRouteTrips(t.Trips)
	if err != nil {
		return nil, err
	}

	trips, err := buildTrips(t.Trips, merged, routeStops)
	if err != nil {
		return nil, err
	}

	transfers := buildTransfers(stopIDs, stopCoords)

	return &Index{
		StopCoords:     stopCoords,
		StopIDs:        stopIDs,
		RouteStops:     routeStops,
		RouteStopIndex: routeStopIndex,
		RouteTrips:     routeTrips,
		StopRoutes:     stopRoutes,
		Trips:          trips,
		Transfers:      transfers,
	}, nil
}

func buildStopCoords(rows []feed.StopRow) (map[StopID]Stop, []StopID, error) {
	coords := make(map[StopID]Stop, len(rows))
	ids := make([]StopID, 0, len(rows))

	for i, row := range rows {
		id, err := strconv.Atoi(row.StopID)
		if err != nil {
			return nil, nil, &feed.Error{
				Kind: feed.MalformedRow, File: "stops.txt", Row: i + 1,
				Err: errors.Wrapf(err, "bad stop_id %q", row.StopID),
			}
		}
		sid := StopID(id)
		if _, dup := coords[sid]; dup {
			return nil, nil, &feed.Error{
				Kind: feed.MalformedRow, File: "stops.txt", Row: i + 1,
				Err: errors.Errorf("duplicate stop_id %d", id),
			}
		}
		coords[sid] = Stop{ID: sid, Lat: row.Lat, Lon: row.Lon}
		ids = append(ids, sid)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return coords, ids, nil
}

func buildTripToRoute(rows []feed.TripRow) (map[string]string, error) {
	tripToRoute := make(map[string]string, len(rows))
	for i, row := range rows {
		if row.TripID == "" {
			return nil, &feed.Error{Kind: feed.MalformedRow, File: "trips.txt", Row: i + 1, Err: errors.New("empty trip_id")}
		}
		if _, dup := tripToRoute[row.TripID]; dup {
			return nil, &feed.Error{
				Kind: feed.MalformedRow, File: "trips.txt", Row: i + 1,
				Err: errors.Errorf("duplicate trip_id %q", row.TripID),
			}
		}
		tripToRoute[row.TripID] = row.RouteID
	}
	return tripToRoute, nil
}

func mergeStopTimesTrips(rows []feed.StopTimeRow, tripToRoute map[string]string, stopCoords map[StopID]Stop) ([]mergedRow, error) {
	merged := make([]mergedRow, len(rows))

	for i, row := range rows {
		routeID, ok := tripToRoute[row.TripID]
		if !ok {
			return nil, &feed.Error{
				Kind: feed.InconsistentReference, File: "stop_times.txt", Row: i + 1,
				Err: errors.Errorf("trip_id %q not found in trips.txt", row.TripID),
			}
		}

		stopIDInt, err := strconv.Atoi(row.StopID)
		if err != nil {
			return nil, &feed.Error{
				Kind: feed.MalformedRow, File: "stop_times.txt", Row: i + 1,
				Err: errors.Wrapf(err, "bad stop_id %q", row.StopID),
			}
		}
		stopID := StopID(stopIDInt)
		if _, ok := stopCoords[stopID]; !ok {
			return nil, &feed.Error{
				Kind: feed.InconsistentReference, File: "stop_times.txt", Row: i + 1,
				Err: errors.Errorf("stop_id %d not found in stops.txt", stopIDInt),
			}
		}

		arr, err := timefmt.ParseClock(row.ArrivalTime)
		if err != nil {
			return nil, &feed.Error{Kind: feed.MalformedRow, File: "stop_times.txt", Row: i + 1, Err: err}
		}
		dep, err := timefmt.ParseClock(row.DepartureTime)
		if err != nil {
			return nil, &feed.Error{Kind: feed.MalformedRow, File: "stop_times.txt", Row: i + 1, Err: err}
		}
		if arr > dep {
			return nil, &feed.Error{
				Kind: feed.MalformedRow, File: "stop_times.txt", Row: i + 1,
				Err: errors.Errorf("arrival %s after departure %s", row.ArrivalTime, row.DepartureTime),
			}
		}

		merged[i] = mergedRow{
			RouteID:      routeID,
			TripID:       row.TripID,
			StopID:       stopID,
			StopSequence: row.StopSequence,
			Arrival:      arr,
			Departure:    dep,
		}
	}

	return merged, nil
}

// sortMerged sorts lexicographically by (route_id, trip_id, stop_sequence),
// per §4.1.2 step 3. The sort must be stable so that step 4's first-seen
// order is well defined when two rows tie on all three keys.
func sortMerged(merged []mergedRow) {
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.RouteID != b.RouteID {
			return a.RouteID < b.RouteID
		}
		if a.TripID != b.TripID {
			return a.TripID < b.TripID
		}
		return a.StopSequence < b.StopSequence
	})
}

func buildRouteStops(merged []mergedRow) (map[string][]StopID, map[StopID]map[string]struct{}) {
	routeStops := make(map[string][]StopID)
	seen := make(map[string]map[StopID]struct{})
	stopRoutes := make(map[StopID]map[string]struct{})

	for _, row := range merged {
		if seen[row.RouteID] == nil {
			seen[row.RouteID] = make(map[StopID]struct{})
		}
		if _, already := seen[row.RouteID][row.StopID]; !already {
			seen[row.RouteID][row.StopID] = struct{}{}
			routeStops[row.RouteID] = append(routeStops[row.RouteID], row.StopID)
		}

		if stopRoutes[row.StopID] == nil {
			stopRoutes[row.StopID] = make(map[string]struct{})
		}
		stopRoutes[row.StopID][row.RouteID] = struct{}{}
	}

	return routeStops, stopRoutes
}

func buildRouteStopIndex(routeStops map[string][]StopID) map[string]map[StopID]int {
	index := make(map[string]map[StopID]int, len(routeStops))
	for route, stops := range routeStops {
		positions := make(map[StopID]int, len(stops))
		for i, s := range stops {
			positions[s] = i
		}
		index[route] = positions
	}
	return index
}

// buildRouteTrips iterates the trips table in input order. Multiple trips on
// one route are the norm; this must not deduplicate.
func buildRouteTrips(rows []feed.TripRow) (map[string][]string, error) {
	routeTrips := make(map[string][]string)
	for _, row := range rows {
		routeTrips[row.RouteID] = append(routeTrips[row.RouteID], row.TripID)
	}
	return routeTrips, nil
}

func buildTrips(rows []feed.TripRow, merged []mergedRow, routeStops map[string][]StopID) (map[string]*Trip, error) {
	trips := make(map[string]*Trip, len(rows))
	for _, row := range rows {
		trips[row.TripID] = &Trip{
			ID:      row.TripID,
			RouteID: row.RouteID,
			Info: map[string]string{
				"route_id": row.RouteID,
				"trip_id":  row.TripID,
			},
			Stops: make(map[StopID]StopTime),
		}
	}

	for i, row := range merged {
		trip, ok := trips[row.TripID]
		if !ok {
			// unreachable: mergeStopTimesTrips already validated trip_id existence
			return nil, &feed.Error{Kind: feed.InconsistentReference, File: "stop_times.txt", Row: i + 1, Err: errors.Errorf("trip_id %q vanished", row.TripID)}
		}
		trip.Stops[row.StopID] = StopTime{Arrival: row.Arrival, Departure: row.Departure}
	}

	for tripID, trip := range trips {
		routeStopSet := routeStops[trip.RouteID]
		positions := make(map[StopID]struct{}, len(routeStopSet))
		for _, s := range routeStopSet {
			positions[s] = struct{}{}
		}
		for stop := range trip.Stops {
			if _, ok := positions[stop]; !ok {
				return nil, &feed.Error{
					Kind: feed.InconsistentReference, File: "stop_times.txt",
					Err: errors.Errorf("trip %q visits stop %d not present in RouteStops[%s]", tripID, stop, trip.RouteID),
				}
			}
		}
	}

	return trips, nil
}

// buildTransfers computes the symmetric pedestrian transfer graph. The outer
// loop is parallelized across goroutines, each owning a disjoint, strided
// subset of the (ascending) stop-id list (every workers-th index) and
// accumulating into a goroutine-local map;
// after merging, each stop's transfer list is sorted by neighbor stop-id so
// the published Transfers map is deterministic regardless of goroutine
// scheduling or worker count, per §5 and invariant 6.
func buildTransfers(stopIDs []StopID, stopCoords map[StopID]Stop) map[StopID][]Transfer {
	n := len(stopIDs)
	transfers := make(map[StopID][]Transfer, n)

	if n == 0 {
		return transfers
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	localMaps := make([]map[StopID][]Transfer, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		w := w
		localMaps[w] = make(map[StopID][]Transfer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := localMaps[w]
			for i := w; i < n; i += workers {
				s1 := stopIDs[i]
				c1 := stopCoords[s1]
				for j := i + 1; j < n; j++ {
					s2 := stopIDs[j]
					c2 := stopCoords[s2]

					dist := haversineMeters(c1.Lat, c1.Lon, c2.Lat, c2.Lon)
					if dist > TransferRadiusMeters {
						continue
					}
					walk := int32(dist / WalkMetersPerSecond)
					local[s1] = append(local[s1], Transfer{Stop: s2, WalkSeconds: walk})
					local[s2] = append(local[s2], Transfer{Stop: s1, WalkSeconds: walk})
				}
			}
		}()
	}
	wg.Wait()

	for _, stop := range stopIDs {
		// empty transfer lists are inserted for isolated stops so that
		// len(Transfers) == len(StopCoords) always, per the resolved open
		// question in SPEC_FULL §9.
		transfers[stop] = nil
	}
	for _, local := range localMaps {
		for stop, ts := range local {
			transfers[stop] = append(transfers[stop], ts...)
		}
	}
	for _, stop := range stopIDs {
		ts := transfers[stop]
		sort.Slice(ts, func(i, j int) bool { return ts[i].Stop < ts[j].Stop })
	}

	return transfers
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180.0 }

// haversineMeters computes the great-circle distance between two
// lat/lon points, in meters, per §4.1.4.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}
