// Package feed reads the four GTFS-style tables this system's index is
// built from. It is deliberately thin: row parsing and column validation
// only, no join logic and no domain invariants. Those live in internal/index.
package feed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// Kind classifies a FeedError the way the specification's error-kind table
// does, so callers can branch on errors.As without string-matching.
type Kind int

const (
	// MissingFile: a required input file is absent from the feed directory.
	MissingFile Kind = iota
	// MalformedRow: a required column is missing or a field fails to parse.
	MalformedRow
	// InconsistentReference: a stop_times row references a trip_id absent
	// from trips.txt.
	InconsistentReference
)

func (k Kind) String() string {
	switch k {
	case MissingFile:
		return "missing_file"
	case MalformedRow:
		return "malformed_row"
	case InconsistentReference:
		return "inconsistent_reference"
	default:
		return "unknown"
	}
}

// Error reports a feed-ingestion failure. Build errors are always fatal: no
// partial index is ever published (see FeedError policy in the spec).
type Error struct {
	Kind Kind
	File string
	Row  int // 1-indexed data row, 0 when not row-specific
	Err  error
}

func (e *Error) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("feed: %s in %s (row %d): %v", e.Kind, e.File, e.Row, e.Err)
	}
	return fmt.Sprintf("feed: %s in %s: %v", e.Kind, e.File, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StopRow is the subset of stops.txt this system consumes.
type StopRow struct {
	StopID string  `csv:"stop_id"`
	Lat    float64 `csv:"stop_lat"`
	Lon    float64 `csv:"stop_lon"`
}

// RouteRow is the subset of routes.txt this system consumes.
type RouteRow struct {
	RouteID string `csv:"route_id"`
}

// TripRow is the subset of trips.txt this system consumes.
type TripRow struct {
	RouteID string `csv:"route_id"`
	TripID  string `csv:"trip_id"`
}

// StopTimeRow is the subset of stop_times.txt this system consumes.
type StopTimeRow struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
}

// Tables holds the four parsed row streams, in input order.
type Tables struct {
	Stops     []StopRow
	Routes    []RouteRow
	Trips     []TripRow
	StopTimes []StopTimeRow
}

const (
	stopsFile     = "stops.txt"
	routesFile    = "routes.txt"
	tripsFile     = "trips.txt"
	stopTimesFile = "stop_times.txt"
)

// Load reads the four named tables from baseDir and returns their parsed
// rows. It does not join them or check cross-table references; that is
// internal/index's job.
func Load(baseDir string) (*Tables, error) {
	t := &Tables{}

	if err := readCSV(baseDir, stopsFile, &t.Stops); err != nil {
		return nil, err
	}
	if err := readCSV(baseDir, routesFile, &t.Routes); err != nil {
		return nil, err
	}
	if err := readCSV(baseDir, tripsFile, &t.Trips); err != nil {
		return nil, err
	}
	if err := readCSV(baseDir, stopTimesFile, &t.StopTimes); err != nil {
		return nil, err
	}

	return t, nil
}

func readCSV(baseDir, name string, out interface{}) error {
	path := filepath.Join(baseDir, name)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Kind: MissingFile, File: name, Err: err}
		}
		return &Error{Kind: MissingFile, File: name, Err: errors.Wrapf(err, "opening %s", name)}
	}
	defer f.Close()

	if err := gocsv.Unmarshal(f, out); err != nil {
		return &Error{Kind: MalformedRow, File: name, Err: errors.Wrapf(err, "unmarshaling %s", name)}
	}

	return nil
}
