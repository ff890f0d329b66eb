package topreads

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"booktop/mr"
)

// runJob submits the two-round job over the given input files and
// returns the merged result lines sorted by country id.
func runJob(t *testing.T, inputs []string, dir string, workers, k, passes int) []string {
	t.Helper()
	rounds, err := Rounds(workers, k, passes)
	if err != nil {
		t.Fatal(err)
	}
	c := mr.NewCluster(workers)
	defer c.Shutdown()
	results, err := c.Submit(mr.Job{
		Name:    "topreads-test",
		DataDir: dir,
		Inputs:  inputs,
		Rounds:  rounds,
	})
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for _, f := range results {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		for _, line := range strings.Split(string(b), "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		ci, _ := strconv.ParseInt(lines[i][:strings.IndexByte(lines[i], ',')], 10, 64)
		cj, _ := strconv.ParseInt(lines[j][:strings.IndexByte(lines[j], ',')], 10, 64)
		return ci < cj
	})
	return lines
}

// expectTopK computes the expected result lines directly from the raw
// events, bypassing the pipeline entirely.
func expectTopK(t *testing.T, inputs []string, k int) []string {
	t.Helper()
	counts := make(map[int64]map[int64]uint64)
	for _, f := range inputs {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		for _, line := range strings.Split(string(b), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			ev, err := ParseEvent(line)
			if err != nil {
				t.Fatal(err)
			}
			if counts[ev.Country] == nil {
				counts[ev.Country] = make(map[int64]uint64)
			}
			counts[ev.Country][ev.Book]++
		}
	}
	countries := make([]int64, 0, len(counts))
	for c := range counts {
		countries = append(countries, c)
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i] < countries[j] })
	lines := make([]string, 0, len(countries))
	for _, c := range countries {
		lines = append(lines, strings.TrimSuffix(FormatTopK(c, TopBooks(counts[c], k)), "\n"))
	}
	return lines
}

func TestPipelineMatchesBruteForce(t *testing.T) {
	dir := t.TempDir()
	inputs, err := Dataset{Countries: 12, Books: 40, Reads: 3000, Skew: 1.5, Shards: 4, Seed: 11}.Generate(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := expectTopK(t, inputs, 5)
	got := runJob(t, inputs, dir, 3, 5, 1)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pipeline output mismatch (-want +got):\n%s", diff)
	}
}

// The number of local combining passes is a volume knob only: all
// variants must produce byte-identical merged output.
func TestPipelineVariantsAgree(t *testing.T) {
	dir := t.TempDir()
	inputs, err := Dataset{Countries: 8, Books: 25, Reads: 2000, Skew: 2, Shards: 3, Seed: 5}.Generate(dir)
	if err != nil {
		t.Fatal(err)
	}

	base := runJob(t, inputs, dir, 4, 3, 0)
	for passes := 1; passes <= 2; passes++ {
		got := runJob(t, inputs, dir, 4, 3, passes)
		if diff := cmp.Diff(base, got); diff != "" {
			t.Errorf("passes=%d differs from passes=0 (-base +got):\n%s", passes, diff)
		}
	}
}

func TestPipelineMalformedInputAborts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(input, []byte("0,1\nnot-a-record\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rounds, err := Rounds(2, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	c := mr.NewCluster(2)
	defer c.Shutdown()
	_, err = c.Submit(mr.Job{Name: "bad", DataDir: dir, Inputs: []string{input}, Rounds: rounds})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("Submit err = %v, want ErrMalformedRecord", err)
	}
}

func TestRoundsValidation(t *testing.T) {
	tests := []struct {
		name               string
		workers, k, passes int
	}{
		{"zero workers", 0, 1, 1},
		{"zero k", 2, 0, 1},
		{"negative k", 2, -3, 1},
		{"negative passes", 2, 1, -1},
	}
	for _, test := range tests {
		if _, err := Rounds(test.workers, test.k, test.passes); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%s: err = %v, want ErrInvalidParameter", test.name, err)
		}
	}
}
