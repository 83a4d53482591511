// Package cache persists fetched load records as a single Parquet snapshot
package cache

import "errors"

// ErrPathRequired is returned when no snapshot path is configured
var ErrPathRequired = errors.New("snapshot path is required")

// Config defines where the snapshot lives
type Config struct {
	Path string `yaml:"path" default:"etl_history_2024.parquet"`
}

// Validate checks if the cache configuration is valid
func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrPathRequired
	}

	return nil
}
