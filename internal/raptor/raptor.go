package raptor

import (
	"github.com/raptorway/transitraptor/internal/index"
)

// Query runs the K-bounded RAPTOR round structure from source at departure
// and returns the earliest arrival time at dest together with the
// reconstructed journey. It returns (Unreachable, nil, nil) when dest
// cannot be reached within k rounds, and a *QueryError when source, dest,
// k, or departure are themselves invalid.
//
// Query never mutates idx; it is safe to call concurrently from any
// number of goroutines against the same *index.Index.
func Query(idx *index.Index, source, dest index.StopID, departure int32, k int) (int32, []PathStep, error) {
	if k < 1 {
		return 0, nil, errInvalidBound("k must be >= 1")
	}
	if departure < 0 {
		return 0, nil, errInvalidBound("departure must be >= 0")
	}
	if _, ok := idx.StopCoords[source]; !ok {
		return 0, nil, errUnknownStop(source)
	}
	if _, ok := idx.StopCoords[dest]; !ok {
		return 0, nil, errUnknownStop(dest)
	}

	if source == dest {
		return departure, nil, nil
	}

	arr := make(map[index.StopID][]int32, len(idx.StopIDs))
	best := make(map[index.StopID]int32, len(idx.StopIDs))
	for _, s := range idx.StopIDs {
		row := make([]int32, k+1)
		for i := range row {
			row[i] = Infinity
		}
		arr[s] = row
		best[s] = Infinity
	}
	arr[source][0] = departure
	best[source] = departure

	parent := make(map[parentKey]parentVal)
	marked := []index.StopID{source}

	for round := 1; round <= k && len(marked) > 0; round++ {
		touched := make(map[index.StopID]struct{})

		// Phase A: candidate routes touching a marked stop.
		Q := collectCandidateRoutes(idx, marked)

		// Phase B: scan each candidate route once, boarding the earliest
		// reachable trip and relaxing every downstream stop on it.
		for routeID, startIdx := range Q {
			stops := idx.RouteStops[routeID]
			boardStop := stops[startIdx]
			boardTime := arr[boardStop][round-1]
			if boardTime == Infinity {
				continue
			}

			tripID := earliestTrip(idx, routeID, boardStop, boardTime)
			if tripID == "" {
				continue
			}
			trip := idx.Trips[tripID]
			tripDep := trip.Stops[boardStop].Departure

			for j := startIdx; j < len(stops); j++ {
				s := stops[j]
				st, ok := trip.Stops[s]
				if !ok {
					continue
				}
				if st.Arrival < tripDep {
					continue
				}
				if st.Arrival < arr[s][round] {
					arr[s][round] = st.Arrival
					if st.Arrival < best[s] {
						best[s] = st.Arrival
					}
					parent[parentKey{s, round}] = parentVal{
						PrevStop:  boardStop,
						PrevRound: round - 1,
						Mode:      tripID,
					}
					touched[s] = struct{}{}
				}
			}
		}

		// Phase C: one step of walking transfers from stops reached by
		// transit this round, using the prior round's label per the
		// reference implementation (arr[m][k-1], not the in-progress
		// arr[m][k]). markedTransit is a snapshot of touched as left by
		// Phase B; newly relaxed stops are added to touched afterward, not
		// looped over again in this same pass (ranging over a map while
		// inserting into it is undefined behavior in Go, and would also
		// violate the spec's one-step transfer closure).
		markedTransit := make([]index.StopID, 0, len(touched))
		for m := range touched {
			markedTransit = append(markedTransit, m)
		}
		for _, m := range markedTransit {
			prevArr := arr[m][round-1]
			if prevArr == Infinity {
				continue
			}
			for _, tr := range idx.Transfers[m] {
				t := prevArr + tr.WalkSeconds
				if t < arr[tr.Stop][round] {
					arr[tr.Stop][round] = t
					if t < best[tr.Stop] {
						best[tr.Stop] = t
					}
					parent[parentKey{tr.Stop, round}] = parentVal{
						PrevStop:  m,
						PrevRound: round - 1,
						Mode:      "walk",
						WalkTime:  tr.WalkSeconds,
					}
					touched[tr.Stop] = struct{}{}
				}
			}
		}

		marked = marked[:0]
		for s := range touched {
			marked = append(marked, s)
		}
	}

	if best[dest] == Infinity {
		return Unreachable, nil, nil
	}

	kStar := 0
	for r := 0; r <= k; r++ {
		if arr[dest][r] == best[dest] {
			kStar = r
			break
		}
	}

	return best[dest], traceback(idx, arr, parent, dest, kStar), nil
}

// traceback walks parent pointers from (dest, kStar) back to the source,
// then reverses the result into departure order.
func traceback(idx *index.Index, arr map[index.StopID][]int32, parent map[parentKey]parentVal, dest index.StopID, kStar int) []PathStep {
	var path []PathStep

	stop, round := dest, kStar
	for {
		pv, ok := parent[parentKey{stop, round}]
		if !ok {
			break
		}

		var step PathStep
		switch pv.Mode {
		case "walk":
			step = PathStep{
				Type:      "walk",
				Stop1:     pv.PrevStop,
				Stop2:     stop,
				WalkTime:  pv.WalkTime,
				StartTime: arr[pv.PrevStop][pv.PrevRound],
				EndTime:   arr[stop][round],
				Round:     round,
			}
		default:
			trip := idx.Trips[pv.Mode]
			step = PathStep{
				Type:      "bus/train",
				Stop1:     pv.PrevStop,
				Stop2:     stop,
				TripID:    pv.Mode,
				StartTime: trip.Stops[pv.PrevStop].Departure,
				EndTime:   trip.Stops[stop].Arrival,
				Round:     round,
			}
		}

		path = append(path, step)
		stop, round = pv.PrevStop, pv.PrevRound
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
