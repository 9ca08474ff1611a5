package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raptorway/transitraptor/internal/feed"
	"github.com/raptorway/transitraptor/internal/index"
)

// These tests build an Index from feed.Tables the way the real Build
// pipeline does (CSV row -> join -> sort -> index), then drive Query over
// it, exercising the two packages together the way the seed scenarios in
// the specification describe.

func buildScenarioIndex(t *testing.T, tables *feed.Tables) *index.Index {
	t.Helper()
	idx, err := index.BuildFromTables(tables)
	require.NoError(t, err)
	return idx
}

// Single trip, no transfer: a direct ride is the only way to travel, and
// it is reported as one bus/train leg.
func TestScenarioSingleTripNoTransfer(t *testing.T) {
	tables := &feed.Tables{
		Stops: []feed.StopRow{
			{StopID: "1", Lat: 0, Lon: 0},
			{StopID: "2", Lat: 0, Lon: 0.01},
		},
		Routes: []feed.RouteRow{{RouteID: "R1"}},
		Trips:  []feed.TripRow{{RouteID: "R1", TripID: "T1"}},
		StopTimes: []feed.StopTimeRow{
			{TripID: "T1", StopID: "1", StopSequence: 0, ArrivalTime: "10:00:00", DepartureTime: "10:05:00"},
			{TripID: "T1", StopID: "2", StopSequence: 1, ArrivalTime: "10:10:00", DepartureTime: "10:10:00"},
		},
	}
	idx := buildScenarioIndex(t, tables)

	arrival, path, err := Query(idx, 1, 2, 32400, 2) // departs 09:00:00
	require.NoError(t, err)
	assert.Equal(t, int32(36600), arrival) // 10:10:00
	require.Len(t, path, 1)
	assert.Equal(t, "bus/train", path[0].Type)
	assert.Equal(t, "T1", path[0].TripID)
	assert.Equal(t, index.StopID(1), path[0].Stop1)
	assert.Equal(t, index.StopID(2), path[0].Stop2)
	assert.Equal(t, int32(36300), path[0].StartTime) // 10:05:00
	assert.Equal(t, int32(36600), path[0].EndTime)   // 10:10:00
}

// One transfer between two distinct routes sharing a common stop: two ride
// legs, no walking involved.
func TestScenarioOneRouteToRouteTransfer(t *testing.T) {
	tables := &feed.Tables{
		Stops: []feed.StopRow{
			{StopID: "1", Lat: 0, Lon: 0}, // A
			{StopID: "2", Lat: 1, Lon: 0}, // B, shared by both routes
			{StopID: "3", Lat: 2, Lon: 0}, // C
		},
		Routes: []feed.RouteRow{{RouteID: "R1"}, {RouteID: "R2"}},
		Trips: []feed.TripRow{
			{RouteID: "R1", TripID: "T1"},
			{RouteID: "R2", TripID: "T2"},
		},
		StopTimes: []feed.StopTimeRow{
			{TripID: "T1", StopID: "1", StopSequence: 0, ArrivalTime: "09:55:00", DepartureTime: "10:00:00"},
			{TripID: "T1", StopID: "2", StopSequence: 1, ArrivalTime: "10:05:00", DepartureTime: "10:05:00"},
			{TripID: "T2", StopID: "2", StopSequence: 0, ArrivalTime: "10:07:00", DepartureTime: "10:07:00"},
			{TripID: "T2", StopID: "3", StopSequence: 1, ArrivalTime: "10:15:00", DepartureTime: "10:15:00"},
		},
	}
	idx := buildScenarioIndex(t, tables)

	arrival, path, err := Query(idx, 1, 3, 34200, 2) // departs 09:30:00
	require.NoError(t, err)
	assert.Equal(t, int32(36900), arrival) // 10:15:00
	require.Len(t, path, 2)
	assert.Equal(t, "T1", path[0].TripID)
	assert.Equal(t, "T2", path[1].TripID)
	assert.Equal(t, index.StopID(2), path[0].Stop2)
	assert.Equal(t, index.StopID(2), path[1].Stop1)
}

// Two routes joined by a short walking transfer between nearby stops on
// different routes. Reaching the destination within the round bound
// requires the round-k boarding stop to be re-marked by its own route
// before the walking edge can relax off a valid (non-infinity) prior-round
// label, matching the reference engine's literal round-k-1 read in Phase
// C (preserved per the specification's resolved open question).
func TestScenarioWalkConnectedLines(t *testing.T) {
	tables := &feed.Tables{
		Stops: []feed.StopRow{
			{StopID: "1", Lat: 0, Lon: 0},        // A, far from everything else
			{StopID: "2", Lat: 10, Lon: 10},      // B1
			{StopID: "3", Lat: 10.0009, Lon: 10}, // B2, ~100m north of B1
			{StopID: "4", Lat: 20, Lon: 20},      // C, far from B2
		},
		Routes: []feed.RouteRow{{RouteID: "R1"}, {RouteID: "R2"}},
		Trips: []feed.TripRow{
			{RouteID: "R1", TripID: "T1"},
			{RouteID: "R2", TripID: "T2"},
		},
		StopTimes: []feed.StopTimeRow{
			{TripID: "T1", StopID: "1", StopSequence: 0, ArrivalTime: "09:50:00", DepartureTime: "10:00:00"},
			{TripID: "T1", StopID: "2", StopSequence: 1, ArrivalTime: "10:05:00", DepartureTime: "10:05:00"},
			{TripID: "T2", StopID: "3", StopSequence: 0, ArrivalTime: "10:07:00", DepartureTime: "10:07:00"},
			{TripID: "T2", StopID: "4", StopSequence: 1, ArrivalTime: "10:12:00", DepartureTime: "10:12:00"},
		},
	}
	idx := buildScenarioIndex(t, tables)

	// sanity: the transfer graph connected B1 and B2 within the radius.
	require.NotEmpty(t, idx.Transfers[2])
	assert.Equal(t, index.StopID(3), idx.Transfers[2][0].Stop)

	arrival, path, err := Query(idx, 1, 4, 32400, 3) // departs 09:00:00, K=3
	require.NoError(t, err)
	assert.Equal(t, int32(36720), arrival) // 10:12:00
	require.Len(t, path, 3)
	assert.Equal(t, "bus/train", path[0].Type)
	assert.Equal(t, "walk", path[1].Type)
	assert.Equal(t, "bus/train", path[2].Type)
	assert.Equal(t, index.StopID(1), path[0].Stop1)
	assert.Equal(t, index.StopID(4), path[2].Stop2)
}

// An islanded stop with no serving route and no nearby stop is
// unreachable regardless of the round bound.
func TestScenarioUnreachableIslandedStop(t *testing.T) {
	tables := &feed.Tables{
		Stops: []feed.StopRow{
			{StopID: "1", Lat: 0, Lon: 0},
			{StopID: "2", Lat: 1, Lon: 0},
			{StopID: "9", Lat: 50, Lon: 50}, // Z: isolated
		},
		Routes: []feed.RouteRow{{RouteID: "R1"}},
		Trips:  []feed.TripRow{{RouteID: "R1", TripID: "T1"}},
		StopTimes: []feed.StopTimeRow{
			{TripID: "T1", StopID: "1", StopSequence: 0, ArrivalTime: "10:00:00", DepartureTime: "10:00:00"},
			{TripID: "T1", StopID: "2", StopSequence: 1, ArrivalTime: "10:05:00", DepartureTime: "10:05:00"},
		},
	}
	idx := buildScenarioIndex(t, tables)

	require.Empty(t, idx.Transfers[9])

	arrival, path, err := Query(idx, 1, 9, 36000, 5)
	require.NoError(t, err)
	assert.Equal(t, Unreachable, arrival)
	assert.Nil(t, path)
}

// A journey with no serving route at all for the source stop can never be
// reached by transit or by foot: Phase C only relaxes walking transfers
// from stops reached by a ride earlier in the same round, never from the
// original marked set a round starts with. This is the literal behavior
// of the reference implementation (marked_stops is cleared and rebuilt
// from Phase B's boardings before Phase C runs), not a gap in this port.
func TestScenarioNoRouteServesSourceIsUnreachableEvenWithNearbyStop(t *testing.T) {
	tables := &feed.Tables{
		Stops: []feed.StopRow{
			{StopID: "1", Lat: 0, Lon: 0},
			{StopID: "2", Lat: 0, Lon: 0.0005}, // ~55m away: within walk radius
		},
		Routes:    []feed.RouteRow{},
		Trips:     []feed.TripRow{},
		StopTimes: []feed.StopTimeRow{},
	}
	idx := buildScenarioIndex(t, tables)

	require.NotEmpty(t, idx.Transfers[1]) // the geographic edge exists...

	arrival, path, err := Query(idx, 1, 2, 28800, 2)
	require.NoError(t, err) // ...but is never reachable by this engine's round structure.
	assert.Equal(t, Unreachable, arrival)
	assert.Nil(t, path)
}

// Post-midnight service times (hour >= 24) parse without clamping and
// compare correctly against a post-midnight departure.
func TestScenarioPostMidnightTime(t *testing.T) {
	tables := &feed.Tables{
		Stops: []feed.StopRow{
			{StopID: "1", Lat: 0, Lon: 0},
			{StopID: "2", Lat: 0, Lon: 0.01},
		},
		Routes: []feed.RouteRow{{RouteID: "R1"}},
		Trips:  []feed.TripRow{{RouteID: "R1", TripID: "T1"}},
		StopTimes: []feed.StopTimeRow{
			{TripID: "T1", StopID: "1", StopSequence: 0, ArrivalTime: "24:25:00", DepartureTime: "24:30:00"},
			{TripID: "T1", StopID: "2", StopSequence: 1, ArrivalTime: "25:05:00", DepartureTime: "25:05:00"},
		},
	}
	idx := buildScenarioIndex(t, tables)

	require.Equal(t, int32(25*3600+5*60), idx.Trips["T1"].Stops[2].Arrival)

	arrival, path, err := Query(idx, 1, 2, 24*3600+30*60, 2) // 24:30:00 = 88200
	require.NoError(t, err)
	assert.Equal(t, int32(25*3600+5*60), arrival) // 90300
	require.Len(t, path, 1)
	assert.Equal(t, "T1", path[0].TripID)
}
