// Package raptor implements the K-bounded RAPTOR round engine (the Query
// Engine of the spec) over an immutable *index.Index. Queries are
// stateless and safe to run concurrently; nothing here mutates the index.
package raptor

import (
	"fmt"

	"github.com/raptorway/transitraptor/internal/index"
)

// Infinity is the engine's unreachable sentinel for internal arrival-label
// comparisons, matching the reference implementation's use of the maximum
// representable 32-bit signed integer.
const Infinity int32 = 1<<31 - 1

// Unreachable is the sentinel arrival time Query returns when no path
// exists within K rounds.
const Unreachable int32 = -1

// phaseAParallelThreshold is the marked-set size above which Phase A
// candidate-route collection fans out across goroutines, per §5.
const phaseAParallelThreshold = 200

// earliestTripParallelThreshold is the per-route trip count above which
// earliest_trip scans fan out across goroutines. The spec names
// earliest_trip as one of the two places intra-query parallelism is
// permitted but does not pin a numeric threshold for it; this
// implementation reuses the Phase A threshold for consistency.
const earliestTripParallelThreshold = 200

// QueryErrorKind classifies a Query-time error.
type QueryErrorKind int

const (
	// UnknownStop: source or destination is not in the index's StopCoords.
	UnknownStop QueryErrorKind = iota
	// InvalidBound: K < 1 or departure < 0.
	InvalidBound
)

func (k QueryErrorKind) String() string {
	switch k {
	case UnknownStop:
		return "unknown_stop"
	case InvalidBound:
		return "invalid_bound"
	default:
		return "unknown"
	}
}

// QueryError reports a Query-time input error. Unlike build errors, these
// never mutate shared state; the caller can retry with corrected input.
type QueryError struct {
	Kind QueryErrorKind
	Msg  string
}

func (e *QueryError) Error() string { return e.Msg }

func errUnknownStop(stop index.StopID) error {
	return &QueryError{Kind: UnknownStop, Msg: fmt.Sprintf("raptor: unknown stop %d", stop)}
}

func errInvalidBound(msg string) error {
	return &QueryError{Kind: InvalidBound, Msg: "raptor: " + msg}
}

// PathStep is one reconstructed leg of a journey: either a ride on a trip
// (TripID non-empty, WalkTime 0) or a walking transfer (Type "walk",
// TripID empty).
type PathStep struct {
	Type      string // "walk" or "bus/train"
	Stop1     index.StopID
	Stop2     index.StopID
	TripID    string
	WalkTime  int32
	StartTime int32
	EndTime   int32
	Round     int
}

// parentKey identifies one (stop, round) arrival label for traceback.
type parentKey struct {
	Stop  index.StopID
	Round int
}

// parentVal records how a label at (stop, round) was reached: either by
// riding Mode (a trip id) from PrevStop at PrevRound, or by walking
// ("walk") from PrevStop at PrevRound taking WalkTime seconds.
type parentVal struct {
	PrevStop  index.StopID
	PrevRound int
	Mode      string
	WalkTime  int32
}
