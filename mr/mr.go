// Package mr is a small in-process map-reduce engine. A fixed pool of
// workers executes map and reduce tasks; map output is partitioned by a
// hash of the key into one spill file per reduce task, so that all
// values for a key are grouped on a single reduce task regardless of
// which map task produced them.
package mr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"
)

// KeyValue is a type used to hold the key/value pairs passed to the map and reduce functions.
type KeyValue struct {
	Key   string
	Value string
}

// MapF transforms one input file into intermediate key/value pairs.
type MapF func(filename string, contents string) ([]KeyValue, error)

// ReduceF folds all values observed for a key into one output fragment.
type ReduceF func(key string, values []string) (string, error)

// jobPhase indicates whether a task is scheduled as a map or reduce task.
type jobPhase uint8

const (
	mapPhase jobPhase = iota
	reducePhase
)

type task struct {
	dataDir    string
	jobName    string
	mapFile    string   // only for map, the input file
	phase      jobPhase // are we in mapPhase or reducePhase?
	taskNumber int      // this task's index in the current phase
	nMap       int      // number of map tasks
	nReduce    int      // number of reduce tasks
	mapF       MapF     // map function used in this round
	reduceF    ReduceF  // reduce function used in this round
	wg         sync.WaitGroup
	err        error
}

// Cluster is a pool of workers executing map-reduce rounds. It is safe
// for concurrent Submit calls; each submission gets its own namespace
// for intermediate files.
type Cluster struct {
	nWorkers int
	wg       sync.WaitGroup
	taskCh   chan *task
	exit     chan struct{}
	log      *slog.Logger
}

// NewCluster starts a cluster with nWorkers workers. Callers own the
// cluster and must Shutdown it when done.
func NewCluster(nWorkers int) *Cluster {
	c := &Cluster{
		nWorkers: nWorkers,
		taskCh:   make(chan *task),
		exit:     make(chan struct{}),
		log:      slog.Default(),
	}
	for i := 0; i < c.nWorkers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	return c
}

// NWorkers returns how many workers there are in this cluster.
func (c *Cluster) NWorkers() int { return c.nWorkers }

func (c *Cluster) worker() {
	defer c.wg.Done()
	for {
		select {
		case t := <-c.taskCh:
			if t.phase == mapPhase {
				t.err = doMap(t)
			} else {
				t.err = doReduce(t)
			}
			t.wg.Done()
		case <-c.exit:
			return
		}
	}
}

// Shutdown stops the workers. In-flight tasks finish; queued tasks are
// abandoned.
func (c *Cluster) Shutdown() {
	close(c.exit)
	c.wg.Wait()
}

func doMap(t *task) error {
	content, err := os.ReadFile(t.mapFile)
	if err != nil {
		return fmt.Errorf("map task %d: %w", t.taskNumber, err)
	}
	kvs, err := t.mapF(t.mapFile, string(content))
	if err != nil {
		return fmt.Errorf("map task %d (%s): %w", t.taskNumber, t.mapFile, err)
	}
	intermediates := make([][]KeyValue, t.nReduce)
	for _, kv := range kvs {
		index := ihash(kv.Key) % t.nReduce
		intermediates[index] = append(intermediates[index], kv)
	}
	var g errgroup.Group
	for index, intermediate := range intermediates {
		index, intermediate := index, intermediate
		g.Go(func() error {
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			for _, kv := range intermediate {
				if err := enc.Encode(&kv); err != nil {
					return fmt.Errorf("encode intermediate %q: %w", kv.Key, err)
				}
			}
			return atomic.WriteFile(reduceName(t.dataDir, t.jobName, t.taskNumber, index), &buf)
		})
	}
	return g.Wait()
}

func doReduce(t *task) error {
	var kvs []KeyValue
	for i := 0; i < t.nMap; i++ {
		name := reduceName(t.dataDir, t.jobName, i, t.taskNumber)
		file, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("reduce task %d: %w", t.taskNumber, err)
		}
		dec := json.NewDecoder(file)
		for {
			var kv KeyValue
			if err := dec.Decode(&kv); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				file.Close()
				return fmt.Errorf("decode %s: %w", name, err)
			}
			kvs = append(kvs, kv)
		}
		if err := file.Close(); err != nil {
			return err
		}
	}
	results := make(map[string][]string)
	// Maybe we need merge sort for larger data
	for _, kv := range kvs {
		results[kv.Key] = append(results[kv.Key], kv.Value)
	}
	buf := bytes.NewBufferString("")
	for key, values := range results {
		output, err := t.reduceF(key, values)
		if err != nil {
			return fmt.Errorf("reduce task %d, key %q: %w", t.taskNumber, key, err)
		}
		buf.WriteString(output)
	}
	return atomic.WriteFile(mergeName(t.dataDir, t.jobName, t.taskNumber), buf)
}

func (c *Cluster) runPhase(tasks []*task) error {
	for _, t := range tasks {
		t.wg.Add(1)
		go func(t *task) { c.taskCh <- t }(t)
	}
	var firstErr error
	for _, t := range tasks {
		t.wg.Wait()
		if t.err != nil && firstErr == nil {
			firstErr = t.err
		}
	}
	return firstErr
}

func (c *Cluster) runRound(jobName, dataDir string, round RoundArgs, inputs []string) ([]string, error) {
	start := time.Now()

	// map phase
	nMap := len(inputs)
	tasks := make([]*task, 0, nMap)
	for i := 0; i < nMap; i++ {
		tasks = append(tasks, &task{
			dataDir:    dataDir,
			jobName:    jobName,
			mapFile:    inputs[i],
			phase:      mapPhase,
			taskNumber: i,
			nReduce:    round.NReduce,
			mapF:       round.MapFunc,
		})
	}
	if err := c.runPhase(tasks); err != nil {
		return nil, err
	}

	// reduce phase
	tasks = make([]*task, 0, round.NReduce)
	for i := 0; i < round.NReduce; i++ {
		tasks = append(tasks, &task{
			dataDir:    dataDir,
			jobName:    jobName,
			phase:      reducePhase,
			taskNumber: i,
			nMap:       nMap,
			reduceF:    round.ReduceFunc,
		})
	}
	if err := c.runPhase(tasks); err != nil {
		return nil, err
	}

	results := make([]string, round.NReduce)
	for i := 0; i < round.NReduce; i++ {
		results[i] = mergeName(dataDir, jobName, i)
	}
	c.log.Info("round done",
		"job", jobName, "maps", nMap, "reduces", round.NReduce,
		"elapsed", time.Since(start))
	return results, nil
}

func ihash(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}

func reduceName(dataDir, jobName string, mapTask int, reduceTask int) string {
	return path.Join(dataDir, "mrtmp."+jobName+"-"+strconv.Itoa(mapTask)+"-"+strconv.Itoa(reduceTask))
}

func mergeName(dataDir, jobName string, reduceTask int) string {
	return path.Join(dataDir, "mrtmp."+jobName+"-res-"+strconv.Itoa(reduceTask))
}
