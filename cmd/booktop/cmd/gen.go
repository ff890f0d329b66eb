package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"booktop/topreads"
)

var (
	genOut       string
	genCountries int64
	genBooks     int64
	genReads     int64
	genSkew      float64
	genShards    int
	genSeed      int64

	genCmd = &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic skewed read-event dataset",
		RunE:  genE,
	}
)

func init() {
	genCmd.Flags().StringVar(&genOut, "out", "data", "directory to write the dataset shards to")
	genCmd.Flags().Int64Var(&genCountries, "countries", 100, "number of distinct countries")
	genCmd.Flags().Int64Var(&genBooks, "books", 10000, "number of distinct books")
	genCmd.Flags().Int64Var(&genReads, "reads", 1000000, "total number of read events")
	genCmd.Flags().Float64Var(&genSkew, "skew", 1.5, "tail heaviness; higher concentrates reads on few countries")
	genCmd.Flags().IntVar(&genShards, "shards", 8, "number of shard files to write")
	genCmd.Flags().Int64Var(&genSeed, "seed", 1, "random seed; same seed, same dataset")
	Root.AddCommand(genCmd)
}

func genE(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(genOut, 0755); err != nil {
		return err
	}
	start := time.Now()
	files, err := topreads.Dataset{
		Countries: genCountries,
		Books:     genBooks,
		Reads:     genReads,
		Skew:      genSkew,
		Shards:    genShards,
		Seed:      genSeed,
	}.Generate(genOut)
	if err != nil {
		return err
	}
	slog.Info("dataset ready",
		"dir", genOut,
		"shards", len(files),
		"reads", humanize.Comma(genReads),
		"elapsed", time.Since(start))
	return nil
}
