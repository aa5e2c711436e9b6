// Package batch provides input discovery and the batching controller: a
// bounded buffer of discovered paths drained batch by batch through a
// worker pool, so peak memory and in-flight concurrency stay fixed no
// matter how large the input tree is.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for batch scheduling.
var (
	grobidBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grobid_batches_total",
		Help: "Total batches drained",
	})

	grobidFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grobid_files_total",
		Help: "Total files reaching a terminal outcome, by outcome",
	}, []string{"outcome"})

	grobidBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grobid_batch_duration_seconds",
		Help:    "Wall time to drain one batch",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})
)

// Scheduler pulls paths from a Discoverer, groups them into bounded
// batches, and drains each batch through a fresh worker pool before the
// next batch starts.
//
// The batch-then-block design trades throughput (the pool stalls on the
// slowest file of a batch) for bounded resources: at most BatchSize paths
// buffered and Workers requests in flight.
type Scheduler struct {
	batchSize int
	workers   int
	logger    zerolog.Logger
}

// Summary aggregates the terminal outcomes of one run.
type Summary struct {
	Files   int
	Written int
	Skipped int
	Failed  int
	Batches int
	Elapsed time.Duration
}

// NewScheduler creates a scheduler with the given batch size and worker
// count, both of which must be positive.
func NewScheduler(batchSize, workers int) (*Scheduler, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", batchSize)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("worker count must be > 0, got %d", workers)
	}

	return &Scheduler{
		batchSize: batchSize,
		workers:   workers,
		logger:    log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Run streams paths from the discoverer and processes them to exhaustion.
// Every discovered path lands in exactly one batch; batch N+1 never starts
// until every file of batch N has reached a terminal outcome.
func (s *Scheduler) Run(ctx context.Context, d *Discoverer, p Processor) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}
	buffer := make([]string, 0, s.batchSize)

	err := d.Walk(func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		buffer = append(buffer, path)
		if len(buffer) == s.batchSize {
			s.runBatch(ctx, buffer, p, summary)
			buffer = buffer[:0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Final, possibly smaller batch.
	if len(buffer) > 0 {
		s.runBatch(ctx, buffer, p, summary)
	}

	summary.Elapsed = time.Since(start)

	s.logger.Info().
		Int("files", summary.Files).
		Int("written", summary.Written).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("batches", summary.Batches).
		Float64("runtime_seconds", summary.Elapsed.Seconds()).
		Msg("Run complete")

	return summary, nil
}

// runBatch drains one batch: a fresh pool of s.workers goroutines pulls
// paths from a queue until every unit reaches a terminal outcome. The pool
// is torn down before returning on every path, and one file's failure
// never cancels its siblings.
func (s *Scheduler) runBatch(ctx context.Context, paths []string, p Processor, summary *Summary) {
	batchStart := time.Now()
	batchIndex := summary.Batches

	s.logger.Info().
		Int("batch", batchIndex).
		Int("files", len(paths)).
		Msg("Draining batch")

	queue := make(chan string, len(paths))
	for _, path := range paths {
		queue <- path
	}
	close(queue)

	results := make(chan Outcome, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go s.worker(ctx, i, queue, results, p, &wg)
	}

	wg.Wait()
	close(results)

	for outcome := range results {
		summary.Files++
		grobidFilesTotal.WithLabelValues(string(outcome.Status)).Inc()

		switch outcome.Status {
		case OutcomeWritten:
			summary.Written++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
		}
	}

	summary.Batches++
	grobidBatchesTotal.Inc()
	grobidBatchDuration.Observe(time.Since(batchStart).Seconds())

	s.logger.Info().
		Int("batch", batchIndex).
		Dur("duration", time.Since(batchStart)).
		Msg("Batch drained")
}

// worker processes paths from the queue until it is empty.
func (s *Scheduler) worker(ctx context.Context, workerID int, queue <-chan string, results chan<- Outcome, p Processor, wg *sync.WaitGroup) {
	defer wg.Done()

	for path := range queue {
		outcome := safeProcess(ctx, p, path)
		results <- outcome

		switch outcome.Status {
		case OutcomeWritten:
			s.logger.Info().
				Str("file", outcome.Path).
				Str("dest", outcome.Dest).
				Int("worker_id", workerID).
				Msg("Written")
		case OutcomeSkipped:
			s.logger.Warn().
				Str("file", outcome.Path).
				Str("reason", outcome.Reason).
				Msg("Skipped")
		case OutcomeFailed:
			s.logger.Error().
				Str("file", outcome.Path).
				Str("reason", outcome.Reason).
				Msg("Failed")
		}
	}
}

// safeProcess isolates a misbehaving processor: a panic becomes a failure
// outcome for that file instead of taking down the pool.
func safeProcess(ctx context.Context, p Processor, path string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(path, fmt.Sprintf("panic: %v", r))
		}
	}()
	return p.Process(ctx, path)
}
