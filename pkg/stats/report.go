package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethpandaops/etlaudit/pkg/models"
)

const (
	// DefaultTitle heads the summary table
	DefaultTitle = "ETL Summary Statistics"

	metricLoads = "Loads per Day"
	metricRows  = "Rows per Day"

	timestampLayout = "2006-01-02 15:04:05"
)

// Report holds the distribution of daily loads and daily rows
type Report struct {
	Days  []models.DailyAggregate `json:"days"`
	Loads Summary                 `json:"loads"`
	Rows  Summary                 `json:"rows"`
}

// NewReport summarizes records per day
func NewReport(records []models.LoadRecord) *Report {
	days := Daily(records)

	loads := make([]float64, len(days))
	rows := make([]float64, len(days))

	for i := range days {
		loads[i] = float64(days[i].Loads)
		rows[i] = float64(days[i].Rows)
	}

	return &Report{
		Days:  days,
		Loads: Describe(loads),
		Rows:  Describe(rows),
	}
}

// WriteTable renders the report as an aligned table
func WriteTable(w io.Writer, title string, report *Report) error {
	if title == "" {
		title = DefaultTitle
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "Metric\tMin\tQ1\tMedian\tQ3\tMax\tMean\tSD\tN\tMissing\t")

	for _, row := range []struct {
		name    string
		summary Summary
	}{
		{metricLoads, report.Loads},
		{metricRows, report.Rows},
	} {
		s := row.summary
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			row.name,
			formatNumber(s.Min, 0), formatNumber(s.Q1, 0), formatNumber(s.Median, 0),
			formatNumber(s.Q3, 0), formatNumber(s.Max, 0),
			formatNumber(s.Mean, 1), formatNumber(s.SD, 1),
			humanize.Comma(int64(s.N)), humanize.Comma(int64(s.Missing)))
	}

	return tw.Flush()
}

// Overview is the headline view of a fetched record set
type Overview struct {
	First          time.Time `json:"first"`
	Last           time.Time `json:"last"`
	Total          int       `json:"total"`
	Days           int       `json:"days"`
	AvgLoadsPerDay float64   `json:"avg_loads_per_day"`
	AvgRowsPerDay  float64   `json:"avg_rows_per_day"`
	FirstDay       time.Time `json:"first_day"`
	LastDay        time.Time `json:"last_day"`
}

// NewOverview computes the overview, the zero value for no records
func NewOverview(records []models.LoadRecord) Overview {
	if len(records) == 0 {
		return Overview{}
	}

	overview := Overview{
		First: records[0].Timestamp,
		Last:  records[0].Timestamp,
		Total: len(records),
	}

	for i := range records {
		if records[i].Timestamp.Before(overview.First) {
			overview.First = records[i].Timestamp
		}

		if records[i].Timestamp.After(overview.Last) {
			overview.Last = records[i].Timestamp
		}
	}

	report := NewReport(records)
	overview.Days = len(report.Days)
	overview.AvgLoadsPerDay = report.Loads.Mean
	overview.AvgRowsPerDay = report.Rows.Mean
	overview.FirstDay = report.Days[0].Date
	overview.LastDay = report.Days[len(report.Days)-1].Date

	return overview
}

// WriteOverview prints the data summary and daily averages
func WriteOverview(w io.Writer, overview Overview) error {
	lines := []string{
		"",
		"Data Summary:",
		fmt.Sprintf("Date Range: %s to %s", overview.First.UTC().Format(timestampLayout), overview.Last.UTC().Format(timestampLayout)),
		"Total Records: " + humanize.Comma(int64(overview.Total)),
		"",
		"Daily Statistics:",
		"Days with loads: " + humanize.Comma(int64(overview.Days)),
		"Average daily loads: " + formatNumber(overview.AvgLoadsPerDay, 1),
		"Average rows per day: " + formatNumber(overview.AvgRowsPerDay, 0),
		"",
		"First ETL notification: " + overview.FirstDay.Format(time.DateOnly),
		"Last ETL notification: " + overview.LastDay.Format(time.DateOnly),
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// formatNumber renders v with a fixed number of decimals and thousands separators
func formatNumber(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}

	text := strconv.FormatFloat(v, 'f', decimals, 64)

	sign := ""
	if strings.HasPrefix(text, "-") {
		sign, text = "-", text[1:]
	}

	whole, frac, hasFrac := strings.Cut(text, ".")

	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + text
	}

	out := sign + humanize.Comma(n)
	if hasFrac {
		out += "." + frac
	}

	return out
}
