// Package models defines the records and windows shared across etlaudit
package models

import "time"

// LoadRecord is a single table load reported by an ETL notification
type LoadRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Filename    string    `json:"filename"`
	Destination string    `json:"destination"`
	Table       string    `json:"table"`
	Rows        int64     `json:"rows"`
}

// TimeChunk is a half-open window [Start, End) fetched as one unit
type TimeChunk struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the half-open window
func (c TimeChunk) Contains(t time.Time) bool {
	return !t.Before(c.Start) && t.Before(c.End)
}

// Duration returns the length of the window
func (c TimeChunk) Duration() time.Duration {
	return c.End.Sub(c.Start)
}

func (c TimeChunk) String() string {
	return c.Start.Format(time.RFC3339) + "/" + c.End.Format(time.RFC3339)
}

// DailyAggregate summarizes the loads of one calendar day (UTC)
type DailyAggregate struct {
	Date  time.Time `json:"date"`
	Loads int64     `json:"loads"`
	Rows  int64     `json:"rows"`
}

// ChunkResult holds what one window produced, including the errors that cut it short.
// Records gathered before an error are kept.
type ChunkResult struct {
	Chunk   TimeChunk    `json:"chunk"`
	Records []LoadRecord `json:"records"`
	Pages   int          `json:"pages"`
	Errors  []error      `json:"-"`
}

// Partial reports whether the chunk stopped early because of an error
func (r *ChunkResult) Partial() bool {
	return len(r.Errors) > 0
}
