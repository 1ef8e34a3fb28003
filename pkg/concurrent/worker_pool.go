package concurrent

import (
	"context"
	"sort"
	"sync"
)

type JobFunc[T any, G any] func(ctx context.Context, job T) (G, error)

// Result. output of one job, Index is the order the job was added in
type Result[G any] struct {
	Index int
	Value G
	Err   error
}

type indexedJob[T any] struct {
	index int
	job   T
}

type WorkerPool[T any, G any] struct {
	numWorkers int
	seq        int
	jobQueue   chan indexedJob[T]
	results    chan Result[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan indexedJob[T], jobQueueSize),
		results:    make(chan Result[G], jobQueueSize),
	}
}

// worker. jobs still queued after ctx is done are answered with ctx.Err()
func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for ij := range wp.jobQueue {
		if err := ctx.Err(); err != nil {
			wp.results <- Result[G]{Index: ij.index, Err: err}
			continue
		}
		val, err := jobFunc(ctx, ij.job)
		wp.results <- Result[G]{Index: ij.index, Value: val, Err: err}
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

// AddJob is not safe for concurrent use.
func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobQueue <- indexedJob[T]{index: wp.seq, job: job}
	wp.seq++
}

func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) CollectResults() chan Result[G] {
	return wp.results
}

// Run processes jobs on numWorkers goroutines and returns the results in job order.
func Run[T any, G any](ctx context.Context, numWorkers int, jobs []T,
	jobFunc func(ctx context.Context, job T) (G, error)) []Result[G] {
	wp := NewWorkerPool[T, G](numWorkers, len(jobs))
	wp.Start(ctx, jobFunc)
	for _, job := range jobs {
		wp.AddJob(job)
	}
	wp.Close()
	wp.Wait()

	results := make([]Result[G], 0, len(jobs))
	for res := range wp.CollectResults() {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})
	return results
}
