package slack

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ethpandaops/etlaudit/internal/testutil"
	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/sirupsen/logrus"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPageFailed = errors.New("page failed")

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

func testConfig() *Config {
	return &Config{
		Token:     "xoxb-test",
		Channel:   "C123",
		PageLimit: MaxPageLimit,
	}
}

func historyPage(cursor string, hasMore bool, msgs ...slackapi.Message) *slackapi.GetConversationHistoryResponse {
	resp := &slackapi.GetConversationHistoryResponse{
		HasMore:  hasMore,
		Messages: msgs,
	}
	resp.ResponseMetaData.NextCursor = cursor

	return resp
}

func testChunk() models.TimeChunk {
	return models.TimeChunk{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
}

func notification(ts time.Time, table string, rows int64) slackapi.Message {
	return testutil.NotificationMessage(ts, testutil.NotificationText("load.csv", "warehouse",
		testutil.TableRows{Table: table, Rows: rows}))
}

func TestFetcher_FetchWindow_Paginates(t *testing.T) {
	chunk := testChunk()
	day := 24 * time.Hour

	pages := map[string]*slackapi.GetConversationHistoryResponse{
		"":   historyPage("c1", true, notification(chunk.Start.Add(day), "a", 1)),
		"c1": historyPage("c2", true, notification(chunk.Start.Add(2*day), "b", 2), testutil.PlainMessage(chunk.Start, "hi")),
		"c2": historyPage("", false, notification(chunk.Start.Add(3*day), "c", 3)),
	}

	client := NewMockHistoryClient()
	client.GetConversationHistoryFunc = func(_ context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
		return pages[params.Cursor], nil
	}

	fetcher := NewFetcher(newTestLogger(), client, testConfig())
	result := fetcher.FetchWindow(context.Background(), chunk)

	require.Empty(t, result.Errors)
	assert.False(t, result.Partial())
	assert.Equal(t, 3, result.Pages)
	require.Len(t, result.Records, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{result.Records[0].Table, result.Records[1].Table, result.Records[2].Table})

	calls := client.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"", "c1", "c2"}, []string{calls[0].Cursor, calls[1].Cursor, calls[2].Cursor})

	for _, call := range calls {
		assert.Equal(t, "C123", call.ChannelID)
		assert.Equal(t, MaxPageLimit, call.Limit)
		assert.True(t, call.Inclusive)
		assert.Equal(t, "1704067200.000000", call.Oldest)
		assert.Equal(t, "1704672000.000000", call.Latest)
	}
}

func TestFetcher_FetchWindow_StopsOnEmptyCursor(t *testing.T) {
	client := NewMockHistoryClient()
	client.GetConversationHistoryFunc = func(_ context.Context, _ *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
		// has_more without a cursor must not loop forever
		return historyPage("", true, notification(testChunk().Start, "a", 1)), nil
	}

	result := NewFetcher(newTestLogger(), client, testConfig()).FetchWindow(context.Background(), testChunk())

	assert.Len(t, client.Calls(), 1)
	assert.Len(t, result.Records, 1)
	assert.Empty(t, result.Errors)
}

func TestFetcher_FetchWindow_KeepsRecordsBeforeError(t *testing.T) {
	chunk := testChunk()

	client := NewMockHistoryClient()
	client.GetConversationHistoryFunc = func(_ context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
		switch params.Cursor {
		case "":
			return historyPage("c1", true,
				notification(chunk.Start.Add(time.Hour), "orders", 10),
				notification(chunk.Start.Add(2*time.Hour), "items", 20),
			), nil
		default:
			return nil, errPageFailed
		}
	}

	result := NewFetcher(newTestLogger(), client, testConfig()).FetchWindow(context.Background(), chunk)

	assert.True(t, result.Partial())
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], errPageFailed)
	assert.Equal(t, 1, result.Pages)
	assert.Len(t, result.Records, 2)
	assert.Len(t, client.Calls(), 2)
}

func TestFetcher_FetchWindow_FirstPageError(t *testing.T) {
	client := NewMockHistoryClient()
	client.GetConversationHistoryFunc = func(_ context.Context, _ *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
		return nil, &slackapi.RateLimitedError{RetryAfter: time.Second}
	}

	result := NewFetcher(newTestLogger(), client, testConfig()).FetchWindow(context.Background(), testChunk())

	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.Pages)
	require.Len(t, result.Errors, 1)

	var rateLimited *slackapi.RateLimitedError
	assert.ErrorAs(t, result.Errors[0], &rateLimited)
}

func TestFetcher_FetchWindow_HalfOpenBoundaries(t *testing.T) {
	chunk := testChunk()

	client := NewMockHistoryClient()
	client.GetConversationHistoryFunc = func(_ context.Context, _ *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
		return historyPage("", false,
			notification(chunk.End, "at_end", 1),
			notification(chunk.Start, "at_start", 2),
			notification(chunk.End.Add(-time.Microsecond), "before_end", 3),
		), nil
	}

	result := NewFetcher(newTestLogger(), client, testConfig()).FetchWindow(context.Background(), chunk)

	tables := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		tables = append(tables, r.Table)
	}

	assert.ElementsMatch(t, []string{"at_start", "before_end"}, tables)
}

func TestFetcher_FetchWindow_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := NewMockHistoryClient()
	client.GetConversationHistoryFunc = func(_ context.Context, _ *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
		cancel()
		return historyPage("next", true, notification(testChunk().Start, "a", 1)), nil
	}

	cfg := testConfig()
	cfg.PageDelay = time.Minute

	result := NewFetcher(newTestLogger(), client, cfg).FetchWindow(ctx, testChunk())

	assert.Len(t, client.Calls(), 1)
	assert.Len(t, result.Records, 1)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], context.Canceled)
}

func TestFetcher_FetchWindow_SlackAPI(t *testing.T) {
	chunk := testChunk()

	messages := make([]slackapi.Message, 0, 5)
	for i := 0; i < 5; i++ {
		messages = append(messages, notification(chunk.Start.Add(time.Duration(i)*time.Hour), "t", int64(i)))
	}
	// Outside the window
	messages = append(messages, notification(chunk.End.Add(time.Hour), "late", 99))

	server := testutil.NewSlackServer(t, 2, messages...)

	cfg := testConfig()
	cfg.APIURL = server.APIURL()

	client, err := NewClient(cfg)
	require.NoError(t, err)

	result := NewFetcher(newTestLogger(), client, cfg).FetchWindow(context.Background(), chunk)

	require.Empty(t, result.Errors)
	assert.Len(t, result.Records, 5)
	assert.Equal(t, 3, result.Pages)

	requests := server.Requests()
	require.Len(t, requests, 3)
	assert.Equal(t, "C123", requests[0].Channel)
	assert.Empty(t, requests[0].Cursor)
	assert.Equal(t, "2", requests[1].Cursor)
	assert.Equal(t, "4", requests[2].Cursor)
}

func TestFetcher_FetchWindow_SlackAPIServerError(t *testing.T) {
	chunk := testChunk()

	server := testutil.NewSlackServer(t, 1,
		notification(chunk.Start.Add(time.Hour), "first", 1),
		notification(chunk.Start.Add(2*time.Hour), "second", 2),
	)
	server.FailWith = func(req testutil.HistoryRequest) int {
		if req.Cursor != "" {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	}

	cfg := testConfig()
	cfg.APIURL = server.APIURL()

	client, err := NewClient(cfg)
	require.NoError(t, err)

	result := NewFetcher(newTestLogger(), client, cfg).FetchWindow(context.Background(), chunk)

	assert.True(t, result.Partial())
	require.Len(t, result.Records, 1)
	// Newest first
	assert.Equal(t, "second", result.Records[0].Table)
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "rate limited", err: &slackapi.RateLimitedError{RetryAfter: time.Second}, expected: "rate_limited"},
		{name: "status code", err: slackapi.StatusCodeError{Code: 500, Status: "500 Internal Server Error"}, expected: "http_status"},
		{name: "deadline", err: context.DeadlineExceeded, expected: "context"},
		{name: "other", err: errPageFailed, expected: "request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errorType(tt.err))
		})
	}
}
