package slack

import (
	"context"
	"fmt"
	"net/http"

	slackapi "github.com/slack-go/slack"
)

// HistoryClient is the subset of the Slack Web API used for fetching
type HistoryClient interface {
	// GetConversationHistoryContext returns one page of channel history
	GetConversationHistoryContext(ctx context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error)
}

// NewClient creates a Slack Web API client from the configuration
func NewClient(cfg *Config) (HistoryClient, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []slackapi.Option{
		slackapi.OptionHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	}

	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}

	return slackapi.New(cfg.Token, opts...), nil
}
