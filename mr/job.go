package mr

import (
	"fmt"

	"github.com/google/uuid"
)

// RoundArgs configures one map-reduce round.
type RoundArgs struct {
	MapFunc    MapF
	ReduceFunc ReduceF
	NReduce    int
}

// RoundsArgs chains rounds: round N's result files are round N+1's map inputs.
type RoundsArgs []RoundArgs

// Job is one submission: named input files pushed through a chain of rounds,
// with intermediate and result files kept under DataDir.
type Job struct {
	Name    string
	DataDir string
	Inputs  []string
	Rounds  RoundsArgs
}

// Submit runs the job to completion and returns the result files of the
// last round. The first task failure aborts the whole submission; no
// partial results are returned.
func (c *Cluster) Submit(job Job) ([]string, error) {
	if len(job.Rounds) == 0 {
		return nil, fmt.Errorf("job %s: no rounds", job.Name)
	}
	if len(job.Inputs) == 0 {
		return nil, fmt.Errorf("job %s: no input files", job.Name)
	}
	for i, r := range job.Rounds {
		if r.MapFunc == nil || r.ReduceFunc == nil {
			return nil, fmt.Errorf("job %s: round %d is missing a map or reduce function", job.Name, i)
		}
		if r.NReduce <= 0 {
			return nil, fmt.Errorf("job %s: round %d: NReduce must be positive, got %d", job.Name, i, r.NReduce)
		}
	}

	// A fresh ID per submission keeps spill files of concurrent or repeated
	// runs of the same job name apart.
	jobID := job.Name + "-" + uuid.NewString()[:8]
	inputs := job.Inputs
	for i, round := range job.Rounds {
		outputs, err := c.runRound(fmt.Sprintf("%s-r%d", jobID, i), job.DataDir, round, inputs)
		if err != nil {
			return nil, fmt.Errorf("job %s: round %d: %w", job.Name, i, err)
		}
		inputs = outputs
	}
	return inputs, nil
}
