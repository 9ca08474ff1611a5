package main

import (
	"fmt"
	"io"

	"github.com/raptorway/transitraptor/internal/index"
	"github.com/raptorway/transitraptor/internal/raptor"
	"github.com/raptorway/transitraptor/internal/timefmt"
)

// writeNoPath reports an unreachable query the way the reference
// implementation's report writer does.
func writeNoPath(w io.Writer, source, dest index.StopID, departure int32) {
	fmt.Fprintf(w, "Source stop: %d\n", source)
	fmt.Fprintf(w, "Dest stop: %d\n", dest)
	fmt.Fprintf(w, "Departure time: %s\n", timefmt.FormatSeconds(departure))
	fmt.Fprintf(w, "No path found.\n")
	fmt.Fprintf(w, "============================================\n\n")
}

// writeJourney reports a found journey's summary and leg-by-leg detail.
func writeJourney(w io.Writer, source, dest index.StopID, departure, arrival int32, path []raptor.PathStep) {
	fmt.Fprintf(w, "Source stop: %d\n", source)
	fmt.Fprintf(w, "Dest stop: %d\n", dest)
	fmt.Fprintf(w, "Departure time: %s\n", timefmt.FormatSeconds(departure))
	fmt.Fprintf(w, "Arrival time: %s\n", timefmt.FormatSeconds(arrival))
	fmt.Fprintf(w, "Transfers: %d\n\n", len(path)-1)

	for i, step := range path {
		fmt.Fprintf(w, "%d - ", i+1)
		if step.Type == "walk" {
			fmt.Fprintf(w, "WALK:\n")
			fmt.Fprintf(w, "Walk from stop %d to stop %d\n", step.Stop1, step.Stop2)
			fmt.Fprintf(w, "Start: %s, End: %s\n", timefmt.FormatSeconds(step.StartTime), timefmt.FormatSeconds(step.EndTime))
			fmt.Fprintf(w, "Walking time: %s\n", timefmt.FormatDuration(step.WalkTime))
		} else {
			fmt.Fprintf(w, "BUS/TRAIN:\n")
			fmt.Fprintf(w, "Board stop %d; Get down at stop %d\n", step.Stop1, step.Stop2)
			fmt.Fprintf(w, "Start: %s, End: %s\n", timefmt.FormatSeconds(step.StartTime), timefmt.FormatSeconds(step.EndTime))
			fmt.Fprintf(w, "Transit time: %s\n", timefmt.FormatDuration(step.EndTime-step.StartTime))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "============================================\n\n")
}
