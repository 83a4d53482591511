package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/observability"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrChunkPanicked is reported for a chunk whose fetch panicked
var ErrChunkPanicked = errors.New("chunk fetch panicked")

// ChunkFetcher fetches every record inside one window
type ChunkFetcher interface {
	FetchWindow(ctx context.Context, chunk models.TimeChunk) models.ChunkResult
}

// Result is the outcome of one scheduling run.
// Records are sorted by timestamp; Errors lists every chunk error encountered.
type Result struct {
	RunID    string               `json:"run_id"`
	Records  []models.LoadRecord  `json:"records"`
	Chunks   []models.ChunkResult `json:"chunks"`
	Errors   []error              `json:"-"`
	Duration time.Duration        `json:"duration"`
}

// Partial reports whether any chunk stopped early
func (r *Result) Partial() bool {
	return len(r.Errors) > 0
}

// Err joins all chunk errors, nil when the run was clean
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// Scheduler dispatches chunk fetches across a fixed number of workers
type Scheduler struct {
	log     logrus.FieldLogger
	fetcher ChunkFetcher
	chunks  []models.TimeChunk
	workers int
}

// NewScheduler creates a scheduler for the configured range
func NewScheduler(log logrus.FieldLogger, fetcher ChunkFetcher, cfg *Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start, end, err := cfg.Range()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		log:     log.WithField("component", "scheduler"),
		fetcher: fetcher,
		chunks:  Partition(start, end, cfg.ChunkSize),
		workers: cfg.Workers,
	}, nil
}

// Chunks returns the windows this scheduler fetches
func (s *Scheduler) Chunks() []models.TimeChunk {
	return s.chunks
}

// Run fetches every chunk and returns the merged records.
// A failing chunk contributes what it gathered; it never aborts the run.
func (s *Scheduler) Run(ctx context.Context) *Result {
	started := time.Now()
	runID := uuid.New().String()
	log := s.log.WithField("run_id", runID)

	log.WithFields(logrus.Fields{
		"chunks":  len(s.chunks),
		"workers": s.workers,
	}).Info("Fetching chunks")

	// Each worker writes only its own slot
	results := make([]models.ChunkResult, len(s.chunks))

	// Plain group: one chunk's failure must not cancel the others
	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, chunk := range s.chunks {
		g.Go(func() error {
			results[i] = s.runChunk(ctx, log, chunk)
			return nil
		})
	}

	_ = g.Wait()

	result := &Result{
		RunID:    runID,
		Records:  Merge(results),
		Chunks:   results,
		Duration: time.Since(started),
	}

	for i := range results {
		result.Errors = append(result.Errors, results[i].Errors...)
	}

	log.WithFields(logrus.Fields{
		"records":  len(result.Records),
		"errors":   len(result.Errors),
		"duration": result.Duration.String(),
	}).Info("Finished fetching chunks")

	return result
}

func (s *Scheduler) runChunk(ctx context.Context, log logrus.FieldLogger, chunk models.TimeChunk) (result models.ChunkResult) {
	started := time.Now()
	observability.RecordChunkStart()

	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithFields(logrus.Fields{
				"chunk": chunk.String(),
				"panic": recovered,
			}).Error("Chunk fetch failed unexpectedly")
			observability.RecordError("scheduler", "panic")

			result = models.ChunkResult{
				Chunk:  chunk,
				Errors: []error{fmt.Errorf("%w: chunk %s: %v", ErrChunkPanicked, chunk, recovered)},
			}
		}

		observability.RecordChunkComplete(chunkStatus(&result), time.Since(started).Seconds())
	}()

	return s.fetcher.FetchWindow(ctx, chunk)
}

func chunkStatus(result *models.ChunkResult) string {
	switch {
	case !result.Partial():
		return observability.ChunkStatusComplete
	case result.Pages > 0:
		return observability.ChunkStatusPartial
	default:
		return observability.ChunkStatusFailed
	}
}
