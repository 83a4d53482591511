// Package scheduler splits a date range into chunks and fetches them on a bounded worker pool
package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the layout of configured range boundaries
const DateLayout = "2006-01-02"

var (
	// ErrInvalidWorkers is returned when the worker count is not positive
	ErrInvalidWorkers = errors.New("workers must be positive")
	// ErrInvalidChunkSize is returned when the chunk size is not positive
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	// ErrInvalidRange is returned when the range is empty or reversed
	ErrInvalidRange = errors.New("end must be after start")
)

// Config defines the fetch range and worker pool
type Config struct {
	// Start is the first day fetched (inclusive, UTC)
	Start string `yaml:"start" default:"2024-01-01"`
	// End is the day the range stops at (exclusive, UTC)
	End       string        `yaml:"end" default:"2025-01-01"`
	ChunkSize time.Duration `yaml:"chunkSize" default:"168h"`
	Workers   int           `yaml:"workers" default:"3"`
}

// Range parses the configured boundaries
func (c *Config) Range() (start, end time.Time, err error) {
	start, err = time.ParseInLocation(DateLayout, c.Start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", c.Start, err)
	}

	end, err = time.ParseInLocation(DateLayout, c.End, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", c.End, err)
	}

	return start, end, nil
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}

	start, end, err := c.Range()
	if err != nil {
		return err
	}

	if !end.After(start) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidRange, c.Start, c.End)
	}

	return nil
}
