// Package extract parses ETL load records out of Slack notification attachments
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/slack-go/slack"
)

// DefaultPretext marks the attachments posted by the ETL pipeline
const DefaultPretext = "ETL Notification"

const unknown = "Unknown"

// Define static errors
var (
	ErrInvalidTimestamp = errors.New("invalid slack timestamp")
)

//nolint:gochecknoglobals // Compiled once, read-only
var (
	filenamePattern    = regexp.MustCompile(`loaded: (.*?) \(`)
	destinationPattern = regexp.MustCompile(`into (.*?):`)
	tableRowsPattern   = regexp.MustCompile(`([\w\.]+):\s*(\d+)\s*rows`)
)

// Extractor turns notification messages into load records
type Extractor struct {
	pretext string
}

// NewExtractor creates an extractor matching attachments with the given pretext.
// An empty pretext falls back to DefaultPretext.
func NewExtractor(pretext string) *Extractor {
	if pretext == "" {
		pretext = DefaultPretext
	}

	return &Extractor{pretext: pretext}
}

// Pretext returns the marker this extractor matches on
func (e *Extractor) Pretext() string {
	return e.pretext
}

// Extract returns the load records carried by a message.
// Messages without a matching attachment, or with an unreadable timestamp, yield nothing.
func (e *Extractor) Extract(msg *slack.Message) []models.LoadRecord {
	var (
		records []models.LoadRecord
		ts      time.Time
		parsed  bool
	)

	for i := range msg.Attachments {
		attachment := &msg.Attachments[i]
		if attachment.Pretext != e.pretext {
			continue
		}

		if !parsed {
			var err error
			ts, err = ParseTimestamp(msg.Timestamp)
			if err != nil {
				return nil
			}
			parsed = true
		}

		records = append(records, ParseText(ts, attachment.Text)...)
	}

	return records
}

// ParseText extracts one record per "<table>: <n> rows" pair found in text
func ParseText(ts time.Time, text string) []models.LoadRecord {
	pairs := tableRowsPattern.FindAllStringSubmatch(text, -1)
	if len(pairs) == 0 {
		return nil
	}

	filename := firstGroup(filenamePattern, text)
	destination := firstGroup(destinationPattern, text)

	records := make([]models.LoadRecord, 0, len(pairs))
	for _, pair := range pairs {
		rows, err := strconv.ParseInt(pair[2], 10, 64)
		if err != nil {
			// Out of int64 range
			continue
		}

		records = append(records, models.LoadRecord{
			Timestamp:   ts,
			Filename:    filename,
			Destination: destination,
			Table:       pair[1],
			Rows:        rows,
		})
	}

	return records
}

// ParseTimestamp converts a Slack message ts ("1704067200.000100") to UTC time
func ParseTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidTimestamp, ts, err)
	}

	var nanos int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}

		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidTimestamp, ts, err)
		}

		for i := len(fracPart); i < 9; i++ {
			frac *= 10
		}
		nanos = frac
	}

	return time.Unix(sec, nanos).UTC(), nil
}

// FormatTimestamp renders t the way the Slack API expects oldest/latest
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/int(time.Microsecond))
}

func firstGroup(re *regexp.Regexp, text string) string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return unknown
	}

	return match[1]
}
