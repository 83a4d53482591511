package slack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/extract"
	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/observability"
	"github.com/sirupsen/logrus"
	slackapi "github.com/slack-go/slack"
)

// Fetcher drains a channel's history for one time window at a time
type Fetcher struct {
	log       logrus.FieldLogger
	client    HistoryClient
	extractor *extract.Extractor
	channel   string
	pageLimit int
	pageDelay time.Duration
}

// NewFetcher creates a fetcher. The client is shared and only read from.
func NewFetcher(log logrus.FieldLogger, client HistoryClient, cfg *Config) *Fetcher {
	cfg.SetDefaults()

	return &Fetcher{
		log:       log.WithField("component", "slack-fetcher"),
		client:    client,
		extractor: extract.NewExtractor(cfg.Pretext),
		channel:   cfg.Channel,
		pageLimit: cfg.PageLimit,
		pageDelay: cfg.PageDelay,
	}
}

// FetchWindow pages through the channel history inside chunk and returns the
// load records found. A failed page ends pagination for the chunk; records from
// earlier pages are kept and the error is reported in the result.
func (f *Fetcher) FetchWindow(ctx context.Context, chunk models.TimeChunk) models.ChunkResult {
	result := models.ChunkResult{Chunk: chunk}

	log := f.log.WithFields(logrus.Fields{
		"oldest": chunk.Start.Format(time.RFC3339),
		"latest": chunk.End.Format(time.RFC3339),
	})

	// inclusive=true plus the half-open filter below puts a message sitting
	// exactly on a boundary into one chunk only
	params := &slackapi.GetConversationHistoryParameters{
		ChannelID: f.channel,
		Oldest:    extract.FormatTimestamp(chunk.Start),
		Latest:    extract.FormatTimestamp(chunk.End),
		Inclusive: true,
		Limit:     f.pageLimit,
	}

	for {
		page := result.Pages + 1

		resp, err := f.client.GetConversationHistoryContext(ctx, params)
		if err != nil {
			observability.RecordPage("error")
			observability.RecordError("slack", errorType(err))

			log.WithError(err).WithField("page", page).Error("Failed to fetch history page, stopping pagination for chunk")
			result.Errors = append(result.Errors, fmt.Errorf("chunk %s page %d: %w", chunk, page, err))

			break
		}

		observability.RecordPage("success")
		result.Pages = page

		found := 0
		for i := range resp.Messages {
			for _, record := range f.extractor.Extract(&resp.Messages[i]) {
				if !chunk.Contains(record.Timestamp) {
					continue
				}

				result.Records = append(result.Records, record)
				found++
			}
		}
		observability.RecordRecordsExtracted(found)

		log.WithFields(logrus.Fields{
			"page":     page,
			"messages": len(resp.Messages),
			"records":  found,
		}).Debug("Fetched history page")

		params.Cursor = resp.ResponseMetaData.NextCursor
		if !resp.HasMore || params.Cursor == "" {
			break
		}

		if err := sleep(ctx, f.pageDelay); err != nil {
			log.WithError(err).Warn("Pagination interrupted")
			result.Errors = append(result.Errors, fmt.Errorf("chunk %s: %w", chunk, err))

			break
		}
	}

	log.WithFields(logrus.Fields{
		"records": len(result.Records),
		"pages":   result.Pages,
		"partial": result.Partial(),
	}).Info("Fetched chunk")

	return result
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errorType(err error) string {
	var rateLimited *slackapi.RateLimitedError
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}

	var statusErr slackapi.StatusCodeError
	if errors.As(err, &statusErr) {
		return "http_status"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "context"
	}

	return "request"
}
