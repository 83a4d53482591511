// Package slack fetches ETL notifications from a Slack channel's history
package slack

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/extract"
)

// MaxPageLimit is the largest page size conversations.history accepts
const MaxPageLimit = 1000

// Static errors for configuration validation
var (
	ErrTokenRequired     = errors.New("slack token is required")
	ErrChannelRequired   = errors.New("slack channel is required")
	ErrInvalidPageLimit  = errors.New("page limit out of range")
	ErrNegativePageDelay = errors.New("page delay must not be negative")
)

// Config contains Slack connection and scope settings
type Config struct {
	Token          string        `yaml:"token"`
	Channel        string        `yaml:"channel"`
	APIURL         string        `yaml:"apiUrl"`
	Pretext        string        `yaml:"pretext" default:"ETL Notification"`
	PageLimit      int           `yaml:"pageLimit" default:"1000"`
	PageDelay      time.Duration `yaml:"pageDelay" default:"2s"`
	RequestTimeout time.Duration `yaml:"requestTimeout" default:"60s"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrTokenRequired
	}

	if c.Channel == "" {
		return ErrChannelRequired
	}

	if c.PageLimit < 1 || c.PageLimit > MaxPageLimit {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidPageLimit, c.PageLimit, MaxPageLimit)
	}

	if c.PageDelay < 0 {
		return ErrNegativePageDelay
	}

	return nil
}

// SetDefaults fills zero values with their defaults
func (c *Config) SetDefaults() {
	if c.Pretext == "" {
		c.Pretext = extract.DefaultPretext
	}

	if c.PageLimit == 0 {
		c.PageLimit = MaxPageLimit
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}

	// slack-go joins method names directly onto the endpoint
	if c.APIURL != "" && !strings.HasSuffix(c.APIURL, "/") {
		c.APIURL += "/"
	}
}
