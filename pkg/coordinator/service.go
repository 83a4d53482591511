// Package coordinator decides between the cached snapshot and a fresh fetch
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/scheduler"
	"github.com/sirupsen/logrus"
)

// Service defines the public interface for the coordinator
type Service interface {
	// Load returns the snapshot when present, otherwise fetches and stores a new one.
	// The scheduler result is nil when the snapshot was used.
	Load(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error)

	// Rebuild discards any snapshot and fetches from scratch
	Rebuild(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error)

	// Cached returns the snapshot without ever fetching
	Cached(ctx context.Context) ([]models.LoadRecord, error)
}

// Runner fetches the configured range
type Runner interface {
	Run(ctx context.Context) *scheduler.Result
}

// SnapshotStore persists fetched records
type SnapshotStore interface {
	Load(ctx context.Context) ([]models.LoadRecord, error)
	Store(records []models.LoadRecord) error
	Remove() (bool, error)
}

type service struct {
	log      logrus.FieldLogger
	runner   Runner
	snapshot SnapshotStore
}

// NewService creates a new coordinator service
func NewService(log logrus.FieldLogger, runner Runner, snapshot SnapshotStore) Service {
	return &service{
		log:      log.WithField("component", "coordinator"),
		runner:   runner,
		snapshot: snapshot,
	}
}

func (s *service) Cached(ctx context.Context) ([]models.LoadRecord, error) {
	return s.snapshot.Load(ctx)
}

func (s *service) Load(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error) {
	records, err := s.snapshot.Load(ctx)

	switch {
	case err == nil:
		s.log.WithField("records", len(records)).Info("Using cached snapshot")
		return records, nil, nil
	case errors.Is(err, models.ErrSnapshotNotFound):
		s.log.Info("No snapshot found, fetching from Slack")
	default:
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return s.fetch(ctx)
}

func (s *service) Rebuild(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error) {
	removed, err := s.snapshot.Remove()
	if err != nil {
		return nil, nil, err
	}

	if removed {
		s.log.Info("Deleted existing snapshot")
	}

	return s.fetch(ctx)
}

func (s *service) fetch(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error) {
	result := s.runner.Run(ctx)

	if result.Partial() {
		s.log.WithFields(logrus.Fields{
			"run_id": result.RunID,
			"errors": len(result.Errors),
		}).WithError(result.Err()).Warn("Fetch finished with errors, results are partial")
	}

	if len(result.Records) == 0 {
		return nil, result, models.ErrNoRecords
	}

	if err := s.snapshot.Store(result.Records); err != nil {
		return result.Records, result, fmt.Errorf("failed to store snapshot: %w", err)
	}

	return result.Records, result, nil
}
