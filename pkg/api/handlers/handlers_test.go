package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/coordinator"
	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCorrupt = errors.New("corrupt snapshot")

func sampleRecords() []models.LoadRecord {
	day := func(d, h int) time.Time { return time.Date(2024, 2, d, h, 0, 0, 0, time.UTC) }

	return []models.LoadRecord{
		{Timestamp: day(1, 8), Filename: "a.csv", Destination: "warehouse", Table: "orders", Rows: 100},
		{Timestamp: day(1, 9), Filename: "a.csv", Destination: "warehouse", Table: "items", Rows: 300},
		{Timestamp: day(3, 7), Filename: "b.csv", Destination: "lake", Table: "events", Rows: 50},
	}
}

func newTestApp(source RecordSource) *fiber.App {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}

			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	NewServer(source, log).Register(app)

	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func sourceWith(records []models.LoadRecord, err error) *coordinator.MockService {
	mock := coordinator.NewMockService()
	mock.CachedFunc = func(_ context.Context) ([]models.LoadRecord, error) {
		return records, err
	}

	return mock
}

func TestGetOverview(t *testing.T) {
	app := newTestApp(sourceWith(sampleRecords(), nil))

	status, body := get(t, app, "/overview")
	require.Equal(t, http.StatusOK, status)

	var response OverviewResponse
	require.NoError(t, json.Unmarshal(body, &response))

	assert.Equal(t, 3, response.Total)
	assert.Equal(t, 2, response.Days)
	assert.InDelta(t, 1.5, response.AvgLoadsPerDay, 1e-9)
	assert.InDelta(t, 225.0, response.AvgRowsPerDay, 1e-9)
	assert.Equal(t, "2024-02-01", response.FirstDay)
	assert.Equal(t, "2024-02-03", response.LastDay)
}

func TestGetDaily(t *testing.T) {
	app := newTestApp(sourceWith(sampleRecords(), nil))

	status, body := get(t, app, "/daily")
	require.Equal(t, http.StatusOK, status)

	var response DailyResponse
	require.NoError(t, json.Unmarshal(body, &response))

	assert.Equal(t, []DayResponse{
		{Date: "2024-02-01", Loads: 2, Rows: 400},
		{Date: "2024-02-03", Loads: 1, Rows: 50},
	}, response.Days)
}

func TestGetStats(t *testing.T) {
	app := newTestApp(sourceWith(sampleRecords(), nil))

	status, body := get(t, app, "/stats")
	require.Equal(t, http.StatusOK, status)

	var response StatsResponse
	require.NoError(t, json.Unmarshal(body, &response))

	require.NotNil(t, response.Loads.Median)
	assert.InDelta(t, 1.5, *response.Loads.Median, 1e-9)
	assert.Equal(t, 2, response.Loads.N)
	require.NotNil(t, response.Rows.Max)
	assert.InDelta(t, 400.0, *response.Rows.Max, 1e-9)
	assert.NotNil(t, response.Rows.SD)
}

func TestGetStats_SingleDayHasNullSD(t *testing.T) {
	app := newTestApp(sourceWith(sampleRecords()[:2], nil))

	status, body := get(t, app, "/stats")
	require.Equal(t, http.StatusOK, status)

	var response StatsResponse
	require.NoError(t, json.Unmarshal(body, &response))

	assert.Nil(t, response.Loads.SD)
	assert.Nil(t, response.Rows.SD)
	assert.Equal(t, 1, response.Loads.N)
}

func TestHandlers_Errors(t *testing.T) {
	tests := []struct {
		name       string
		records    []models.LoadRecord
		err        error
		wantStatus int
	}{
		{name: "missing snapshot", err: models.ErrSnapshotNotFound, wantStatus: http.StatusNotFound},
		{name: "empty snapshot", wantStatus: http.StatusNotFound},
		{name: "unreadable snapshot", err: errCorrupt, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := sourceWith(tt.records, tt.err)
			app := newTestApp(source)

			for _, path := range []string{"/overview", "/daily", "/stats"} {
				status, body := get(t, app, path)
				assert.Equal(t, tt.wantStatus, status, path)
				assert.Contains(t, string(body), "error")
			}

			assert.Equal(t, 3, source.CachedCalls)
		})
	}
}
