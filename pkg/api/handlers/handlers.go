// Package handlers implements the read-only HTTP handlers over the record snapshot.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/stats"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// RecordSource provides the cached records
type RecordSource interface {
	Cached(ctx context.Context) ([]models.LoadRecord, error)
}

// Server serves overview, daily and stats views of the snapshot
type Server struct {
	source RecordSource
	log    logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(source RecordSource, log logrus.FieldLogger) *Server {
	return &Server{
		source: source,
		log:    log.WithField("component", "api.handlers"),
	}
}

// Register mounts the handlers on router
func (s *Server) Register(router fiber.Router) {
	router.Get("/overview", s.GetOverview)
	router.Get("/daily", s.GetDaily)
	router.Get("/stats", s.GetStats)
}

// OverviewResponse is the body of GET /overview
type OverviewResponse struct {
	First          time.Time `json:"first"`
	Last           time.Time `json:"last"`
	Total          int       `json:"total"`
	Days           int       `json:"days"`
	AvgLoadsPerDay float64   `json:"avg_loads_per_day"`
	AvgRowsPerDay  float64   `json:"avg_rows_per_day"`
	FirstDay       string    `json:"first_day"`
	LastDay        string    `json:"last_day"`
}

// DailyResponse is the body of GET /daily
type DailyResponse struct {
	Days []DayResponse `json:"days"`
}

// DayResponse is one aggregated day
type DayResponse struct {
	Date  string `json:"date"`
	Loads int64  `json:"loads"`
	Rows  int64  `json:"rows"`
}

// StatsResponse is the body of GET /stats
type StatsResponse struct {
	Loads SummaryResponse `json:"loads_per_day"`
	Rows  SummaryResponse `json:"rows_per_day"`
}

// SummaryResponse mirrors stats.Summary with undefined values as null
type SummaryResponse struct {
	Min     *float64 `json:"min"`
	Q1      *float64 `json:"q1"`
	Median  *float64 `json:"median"`
	Q3      *float64 `json:"q3"`
	Max     *float64 `json:"max"`
	Mean    *float64 `json:"mean"`
	SD      *float64 `json:"sd"`
	N       int      `json:"n"`
	Missing int      `json:"missing"`
}

// GetOverview handles GET /overview
func (s *Server) GetOverview(c fiber.Ctx) error {
	records, err := s.records(c)
	if err != nil {
		return err
	}

	overview := stats.NewOverview(records)

	return c.JSON(OverviewResponse{
		First:          overview.First,
		Last:           overview.Last,
		Total:          overview.Total,
		Days:           overview.Days,
		AvgLoadsPerDay: overview.AvgLoadsPerDay,
		AvgRowsPerDay:  overview.AvgRowsPerDay,
		FirstDay:       overview.FirstDay.Format(time.DateOnly),
		LastDay:        overview.LastDay.Format(time.DateOnly),
	})
}

// GetDaily handles GET /daily
func (s *Server) GetDaily(c fiber.Ctx) error {
	records, err := s.records(c)
	if err != nil {
		return err
	}

	days := stats.Daily(records)
	response := DailyResponse{Days: make([]DayResponse, 0, len(days))}

	for i := range days {
		response.Days = append(response.Days, DayResponse{
			Date:  days[i].Date.Format(time.DateOnly),
			Loads: days[i].Loads,
			Rows:  days[i].Rows,
		})
	}

	return c.JSON(response)
}

// GetStats handles GET /stats
func (s *Server) GetStats(c fiber.Ctx) error {
	records, err := s.records(c)
	if err != nil {
		return err
	}

	report := stats.NewReport(records)

	return c.JSON(StatsResponse{
		Loads: toSummaryResponse(report.Loads),
		Rows:  toSummaryResponse(report.Rows),
	})
}

func (s *Server) records(c fiber.Ctx) ([]models.LoadRecord, error) {
	records, err := s.source.Cached(c.Context())

	switch {
	case errors.Is(err, models.ErrSnapshotNotFound):
		return nil, ErrSnapshotNotFound
	case err != nil:
		s.log.WithError(err).Error("Failed to read snapshot")
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	case len(records) == 0:
		return nil, ErrNoRecords
	}

	return records, nil
}

func toSummaryResponse(summary stats.Summary) SummaryResponse {
	return SummaryResponse{
		Min:     finite(summary.Min),
		Q1:      finite(summary.Q1),
		Median:  finite(summary.Median),
		Q3:      finite(summary.Q3),
		Max:     finite(summary.Max),
		Mean:    finite(summary.Mean),
		SD:      finite(summary.SD),
		N:       summary.N,
		Missing: summary.Missing,
	}
}

// finite returns nil for NaN and infinities, which JSON cannot carry
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}
