// Package server runs the long-lived HTTP surfaces of the serve command
package server

import (
	"errors"
	"time"
)

// ErrInvalidShutdownTimeout is returned when the shutdown timeout is not positive
var ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")

// Config holds server configuration
type Config struct {
	// MetricsAddr is the address to listen on for metrics, empty disables it.
	MetricsAddr string `yaml:"metricsAddr"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}
