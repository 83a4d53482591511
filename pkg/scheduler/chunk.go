package scheduler

import (
	"sort"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/models"
)

// Partition splits [start, end) into contiguous half-open windows of size.
// The last window is clipped to end.
func Partition(start, end time.Time, size time.Duration) []models.TimeChunk {
	if size <= 0 || !end.After(start) {
		return nil
	}

	chunks := make([]models.TimeChunk, 0, int(end.Sub(start)/size)+1)
	for chunkStart := start; chunkStart.Before(end); {
		chunkEnd := chunkStart.Add(size)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		chunks = append(chunks, models.TimeChunk{Start: chunkStart, End: chunkEnd})
		chunkStart = chunkEnd
	}

	return chunks
}

// Merge flattens chunk results and orders the records by timestamp
func Merge(results []models.ChunkResult) []models.LoadRecord {
	total := 0
	for i := range results {
		total += len(results[i].Records)
	}

	records := make([]models.LoadRecord, 0, total)
	for i := range results {
		records = append(records, results[i].Records...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records
}
