package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raptorway/transitraptor/internal/feed"
)

// twoStopRouteTables builds a minimal feed with one route, two trips, and
// two stops ~2.2km apart in latitude (outside TransferRadiusMeters) so the
// two stops should NOT get a walking transfer edge, plus a third close
// stop to verify the positive case.
func twoStopRouteTables() *feed.Tables {
	return &feed.Tables{
		Stops: []feed.StopRow{
			{StopID: "1", Lat: 0.0, Lon: 0.0},
			{StopID: "2", Lat: 0.02, Lon: 0.0}, // ~2.2km north: outside radius
			{StopID: "3", Lat: 0.001, Lon: 0.0}, // ~111m north of stop 1: inside radius
		},
		Routes: []feed.RouteRow{{RouteID: "R1"}},
		Trips: []feed.TripRow{
			{RouteID: "R1", TripID: "T1"},
			{RouteID: "R1", TripID: "T2"},
		},
		StopTimes: []feed.StopTimeRow{
			{TripID: "T1", StopID: "1", StopSequence: 0, ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
			{TripID: "T1", StopID: "2", StopSequence: 1, ArrivalTime: "08:05:00", DepartureTime: "08:05:00"},
			{TripID: "T2", StopID: "1", StopSequence: 0, ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
			{TripID: "T2", StopID: "2", StopSequence: 1, ArrivalTime: "09:05:00", DepartureTime: "09:05:00"},
		},
	}
}

func TestBuildFromTablesRouteStopsAndTrips(t *testing.T) {
	idx, err := BuildFromTables(twoStopRouteTables())
	require.NoError(t, err)

	assert.Equal(t, []StopID{1, 2}, idx.RouteStops["R1"])
	assert.Equal(t, []string{"T1", "T2"}, idx.RouteTrips["R1"])

	pos, ok := idx.StopPosition("R1", 2)
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	require.Contains(t, idx.Trips, "T1")
	assert.Equal(t, int32(28800), idx.Trips["T1"].Stops[1].Departure)
	assert.Equal(t, int32(28800+300), idx.Trips["T1"].Stops[2].Arrival)
}

func TestBuildFromTablesTransferRadius(t *testing.T) {
	idx, err := BuildFromTables(twoStopRouteTables())
	require.NoError(t, err)

	// every stop gets an entry, even with zero transfers, per the
	// resolved equal-footing open question.
	assert.Len(t, idx.Transfers, 3)

	// stop 2 is ~2.2km from stop 1: outside the 1500m radius.
	for _, tr := range idx.Transfers[1] {
		assert.NotEqual(t, StopID(2), tr.Stop)
	}

	// stop 3 is ~111m from stop 1: inside the radius, and symmetric.
	found13, found31 := false, false
	for _, tr := range idx.Transfers[1] {
		if tr.Stop == 3 {
			found13 = true
		}
	}
	for _, tr := range idx.Transfers[3] {
		if tr.Stop == 1 {
			found31 = true
		}
	}
	assert.True(t, found13)
	assert.True(t, found31)
}

func TestBuildFromTablesIsDeterministic(t *testing.T) {
	a, err := BuildFromTables(twoStopRouteTables())
	require.NoError(t, err)
	b, err := BuildFromTables(twoStopRouteTables())
	require.NoError(t, err)

	assert.Equal(t, a.Transfers, b.Transfers)
	assert.Equal(t, a.RouteStops, b.RouteStops)
}

func TestBuildFromTablesRejectsDuplicateStopID(t *testing.T) {
	tables := twoStopRouteTables()
	tables.Stops = append(tables.Stops, feed.StopRow{StopID: "1", Lat: 5, Lon: 5})

	_, err := BuildFromTables(tables)
	require.Error(t, err)
	var ferr *feed.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, feed.MalformedRow, ferr.Kind)
}

func TestBuildFromTablesRejectsDuplicateTripID(t *testing.T) {
	tables := twoStopRouteTables()
	tables.Trips = append(tables.Trips, feed.TripRow{RouteID: "R1", TripID: "T1"})

	_, err := BuildFromTables(tables)
	require.Error(t, err)
	var ferr *feed.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, feed.MalformedRow, ferr.Kind)
}

func TestBuildFromTablesRejectsUnknownTripReference(t *testing.T) {
	tables := twoStopRouteTables()
	tables.StopTimes = append(tables.StopTimes, feed.StopTimeRow{
		TripID: "ghost", StopID: "1", StopSequence: 0, ArrivalTime: "10:00:00", DepartureTime: "10:00:00",
	})

	_, err := BuildFromTables(tables)
	require.Error(t, err)
	var ferr *feed.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, feed.InconsistentReference, ferr.Kind)
}

func TestBuildFromTablesRejectsUnknownStopReference(t *testing.T) {
	tables := twoStopRouteTables()
	tables.StopTimes = append(tables.StopTimes, feed.StopTimeRow{
		TripID: "T1", StopID: "999", StopSequence: 2, ArrivalTime: "10:00:00", DepartureTime: "10:00:00",
	})

	_, err := BuildFromTables(tables)
	require.Error(t, err)
	var ferr *feed.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, feed.InconsistentReference, ferr.Kind)
}

func TestBuildFromTablesRejectsArrivalAfterDeparture(t *testing.T) {
	tables := twoStopRouteTables()
	tables.StopTimes[0].ArrivalTime = "08:10:00"

	_, err := BuildFromTables(tables)
	require.Error(t, err)
	var ferr *feed.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, feed.MalformedRow, ferr.Kind)
}

func TestHaversineMetersKnownDistance(t *testing.T) {
	// one degree of latitude is ~111.19km at the equator.
	d := haversineMeters(0, 0, 1, 0)
	assert.InDelta(t, 111194.0, d, 500)
}
