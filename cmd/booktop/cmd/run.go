package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"booktop/mr"
	"booktop/topreads"
)

var (
	runInput   string
	runOut     string
	runTmp     string
	runWorkers int
	runK       int
	runPasses  int

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Compute the top K books per country over a dataset",
		RunE:  runE,
	}
)

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "data/*.csv", "glob of input event files")
	runCmd.Flags().StringVar(&runOut, "out", "topreads.csv", "output file")
	runCmd.Flags().StringVar(&runTmp, "tmp", "", "directory for intermediate files (default: a fresh temp dir)")
	runCmd.Flags().IntVar(&runWorkers, "workers", runtime.NumCPU(), "worker and reduce-partition count")
	runCmd.Flags().IntVar(&runK, "k", 10, "books to keep per country")
	runCmd.Flags().IntVar(&runPasses, "combine-passes", 1, "local combining passes before the count shuffle (0, 1 or 2 are the usual variants)")
	Root.AddCommand(runCmd)
}

func runE(cmd *cobra.Command, args []string) error {
	inputs, err := filepath.Glob(runInput)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input files match %q", runInput)
	}

	tmp := runTmp
	if tmp == "" {
		tmp, err = os.MkdirTemp("", "booktop")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
	}

	rounds, err := topreads.Rounds(runWorkers, runK, runPasses)
	if err != nil {
		return err
	}

	start := time.Now()
	c := mr.NewCluster(runWorkers)
	defer c.Shutdown()
	results, err := c.Submit(mr.Job{
		Name:    "topreads",
		DataDir: tmp,
		Inputs:  inputs,
		Rounds:  rounds,
	})
	if err != nil {
		return err
	}

	lines, err := mergeResults(results)
	if err != nil {
		return err
	}
	buf := bytes.NewBufferString(strings.Join(lines, ""))
	if err := atomic.WriteFile(runOut, buf); err != nil {
		return err
	}
	slog.Info("top reads written",
		"out", runOut,
		"countries", humanize.Comma(int64(len(lines))),
		"workers", runWorkers,
		"combinePasses", runPasses,
		"elapsed", time.Since(start))
	return nil
}

// mergeResults concatenates the per-partition result files, ordered by
// numeric country id so repeated runs are directly comparable.
func mergeResults(files []string) ([]string, error) {
	var lines []string
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.SplitAfter(string(content), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		return countryOf(lines[i]) < countryOf(lines[j])
	})
	return lines, nil
}

func countryOf(line string) int64 {
	i := strings.IndexByte(line, ',')
	if i < 0 {
		return 0
	}
	n, _ := strconv.ParseInt(line[:i], 10, 64)
	return n
}
