package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/extract"
	slackapi "github.com/slack-go/slack"
)

// TableRows is one "<table>: <rows> rows" line of a notification
type TableRows struct {
	Table string
	Rows  int64
}

// NotificationText renders attachment text in the shape the ETL pipeline posts
func NotificationText(filename, destination string, tables ...TableRows) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File loaded: %s (%d tables) into %s:", filename, len(tables), destination)
	for _, t := range tables {
		fmt.Fprintf(&b, "\n%s: %d rows", t.Table, t.Rows)
	}

	return b.String()
}

// NotificationMessage builds a Slack message carrying one ETL attachment
func NotificationMessage(ts time.Time, text string) slackapi.Message {
	return slackapi.Message{
		Msg: slackapi.Msg{
			Type:      "message",
			Timestamp: extract.FormatTimestamp(ts),
			Attachments: []slackapi.Attachment{
				{Pretext: extract.DefaultPretext, Text: text},
			},
		},
	}
}

// PlainMessage builds a Slack message without attachments
func PlainMessage(ts time.Time, text string) slackapi.Message {
	return slackapi.Message{
		Msg: slackapi.Msg{
			Type:      "message",
			Timestamp: extract.FormatTimestamp(ts),
			Text:      text,
		},
	}
}

// HistoryRequest is a recorded conversations.history call
type HistoryRequest struct {
	Channel   string
	Oldest    string
	Latest    string
	Cursor    string
	Inclusive bool
	Limit     int
}

// SlackServer is an in-memory stand-in for the conversations.history endpoint.
// It filters by oldest/latest, returns newest first and paginates by offset cursor.
type SlackServer struct {
	*httptest.Server

	mu       sync.Mutex
	messages []slackapi.Message
	pageSize int
	requests []HistoryRequest

	// FailWith, when set, may return a non-200 status for a request
	FailWith func(req HistoryRequest) int
}

// NewSlackServer starts a fake Slack API serving messages.
// The server is closed when the test completes.
func NewSlackServer(t *testing.T, pageSize int, messages ...slackapi.Message) *SlackServer {
	t.Helper()

	s := &SlackServer{
		messages: messages,
		pageSize: pageSize,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.history", s.handleHistory)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// APIURL returns the endpoint to configure the Slack client with
func (s *SlackServer) APIURL() string {
	return s.URL + "/"
}

// Requests returns the calls received so far
func (s *SlackServer) Requests() []HistoryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HistoryRequest, len(s.requests))
	copy(out, s.requests)

	return out
}

func (s *SlackServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := parseHistoryRequest(r.Form)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	failWith := s.FailWith
	s.mu.Unlock()

	if failWith != nil {
		if status := failWith(req); status != 0 && status != http.StatusOK {
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "1")
			}
			w.WriteHeader(status)

			return
		}
	}

	matched := s.window(req)

	offset := 0
	if req.Cursor != "" {
		offset, _ = strconv.Atoi(req.Cursor)
	}

	limit := req.Limit
	if limit <= 0 || (s.pageSize > 0 && s.pageSize < limit) {
		limit = s.pageSize
	}
	if limit <= 0 {
		limit = len(matched)
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	if offset > end {
		offset = end
	}

	nextCursor := ""
	hasMore := end < len(matched)
	if hasMore {
		nextCursor = strconv.Itoa(end)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":       true,
		"messages": wireMessages(matched[offset:end]),
		"has_more": hasMore,
		"response_metadata": map[string]string{
			"next_cursor": nextCursor,
		},
	})
}

func (s *SlackServer) window(req HistoryRequest) []slackapi.Message {
	oldest, _ := extract.ParseTimestamp(req.Oldest)
	latest, errLatest := extract.ParseTimestamp(req.Latest)

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]slackapi.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		ts, err := extract.ParseTimestamp(msg.Timestamp)
		if err != nil {
			continue
		}

		if req.Oldest != "" && (ts.Before(oldest) || (!req.Inclusive && ts.Equal(oldest))) {
			continue
		}

		if req.Latest != "" && errLatest == nil && (ts.After(latest) || (!req.Inclusive && ts.Equal(latest))) {
			continue
		}

		matched = append(matched, msg)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	return matched
}

func parseHistoryRequest(form url.Values) HistoryRequest {
	limit, _ := strconv.Atoi(form.Get("limit"))
	inclusive := form.Get("inclusive")

	return HistoryRequest{
		Channel:   form.Get("channel"),
		Oldest:    form.Get("oldest"),
		Latest:    form.Get("latest"),
		Cursor:    form.Get("cursor"),
		Inclusive: inclusive == "1" || inclusive == "true",
		Limit:     limit,
	}
}

// wireMessages keeps only the fields the fetcher reads so the payload mirrors
// what Slack sends rather than slack-go's full marshalled form
func wireMessages(msgs []slackapi.Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))

	for _, msg := range msgs {
		attachments := make([]map[string]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			attachments = append(attachments, map[string]string{
				"pretext": a.Pretext,
				"text":    a.Text,
			})
		}

		out = append(out, map[string]any{
			"type":        "message",
			"ts":          msg.Timestamp,
			"text":        msg.Text,
			"attachments": attachments,
		})
	}

	return out
}
