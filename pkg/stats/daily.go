package stats

import (
	"sort"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/models"
)

// Daily groups records by UTC calendar date, counting loads and summing rows.
// The result is sorted by date; days without records are absent.
func Daily(records []models.LoadRecord) []models.DailyAggregate {
	byDay := make(map[time.Time]*models.DailyAggregate)

	for i := range records {
		ts := records[i].Timestamp.UTC()
		date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

		agg, ok := byDay[date]
		if !ok {
			agg = &models.DailyAggregate{Date: date}
			byDay[date] = agg
		}

		agg.Loads++
		agg.Rows += records[i].Rows
	}

	days := make([]models.DailyAggregate, 0, len(byDay))
	for _, agg := range byDay {
		days = append(days, *agg)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})

	return days
}
