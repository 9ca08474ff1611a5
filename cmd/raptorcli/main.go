// Command raptorcli builds a RAPTOR index from a GTFS-style dataset
// directory and either answers a single route query or runs a batch of
// randomized benchmark queries, writing a report file the way the
// reference implementation's CLI driver does.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/raptorway/transitraptor/internal/feed"
	"github.com/raptorway/transitraptor/internal/index"
	"github.com/raptorway/transitraptor/internal/raptor"
)

const (
	randomDepartureMin = 36000 // 10:00:00
	randomDepartureMax = 64800 // 18:00:00
	randomQueryRounds  = 5
)

var (
	dataset       string
	sourceFlag    int
	destFlag      int
	departureFlag int
	runTests      bool
)

var rootCmd = &cobra.Command{
	Use:          "raptorcli [iterations]",
	Short:        "RAPTOR transit routing CLI",
	Long:         "Builds a RAPTOR index from a GTFS-style dataset and runs route queries against it.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&dataset, "dataset", "gtfs-data-newyork2", "GTFS-style dataset directory")
	rootCmd.Flags().IntVar(&sourceFlag, "source", -1, "source stop id for a single query")
	rootCmd.Flags().IntVar(&destFlag, "dest", -1, "destination stop id for a single query")
	rootCmd.Flags().IntVar(&departureFlag, "departure", -1, "departure time in seconds since midnight")
	rootCmd.Flags().BoolVar(&runTests, "run-tests", false, "run build self-checks before querying")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	iterations := 500
	if len(args) == 1 {
		if parsed, err := strconv.Atoi(args[0]); err == nil {
			iterations = parsed
		}
	}

	buildStart := time.Now()
	tables, err := feed.Load(dataset)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	idx, err := index.BuildFromTables(tables)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	fmt.Println(time.Since(buildStart).Seconds())

	if runTests {
		if err := runSelfChecks(tables, idx); err != nil {
			return err
		}
	}

	if sourceFlag >= 0 && destFlag >= 0 {
		dep := int32(0)
		if departureFlag >= 0 {
			dep = int32(departureFlag)
		}
		arrival, path, err := raptor.Query(idx, index.StopID(sourceFlag), index.StopID(destFlag), dep, randomQueryRounds)
		if err != nil {
			return err
		}
		if arrival == raptor.Unreachable {
			writeNoPath(os.Stdout, index.StopID(sourceFlag), index.StopID(destFlag), dep)
			return nil
		}
		writeJourney(os.Stdout, index.StopID(sourceFlag), index.StopID(destFlag), dep, arrival, path)
		return nil
	}

	return runBenchmark(idx, iterations)
}

// runBenchmark fires `iterations` random source/dest/departure queries and
// writes a text report to raptor_results_<iterations>.txt, mirroring the
// reference implementation's CLI report format and random distribution
// (departure uniform over [36000, 64800), K fixed at 5).
func runBenchmark(idx *index.Index, iterations int) error {
	filename := fmt.Sprintf("raptor_results_%d.txt", iterations)
	fout, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer fout.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	stopIDs := idx.StopIDs
	if len(stopIDs) < 2 {
		return fmt.Errorf("dataset has fewer than two stops")
	}

	start := time.Now()
	for iter := 0; iter < iterations; iter++ {
		depTime := int32(randomDepartureMin + rng.Intn(randomDepartureMax-randomDepartureMin))

		source := stopIDs[rng.Intn(len(stopIDs))]
		dest := stopIDs[rng.Intn(len(stopIDs))]
		for dest == source {
			dest = stopIDs[rng.Intn(len(stopIDs))]
		}

		arrival, path, err := raptor.Query(idx, source, dest, depTime, randomQueryRounds)
		if err != nil {
			return fmt.Errorf("query %d: %w", iter, err)
		}

		if arrival == raptor.Unreachable {
			writeNoPath(fout, source, dest, depTime)
			continue
		}
		writeJourney(fout, source, dest, depTime, arrival, path)
	}
	fmt.Println(time.Since(start).Seconds())

	return nil
}
