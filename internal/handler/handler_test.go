package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type stubExporter struct{ err error }

func (s stubExporter) GeneralReportXLSX(ctx context.Context) ([]byte, string, error) {
	return []byte("PK"), "attendance_report_2025-01-10.xlsx", s.err
}

func (s stubExporter) GeneralReportCSV(ctx context.Context) ([]byte, string, error) {
	return []byte("ID,Employee\n"), "attendance_report_2025-01-10.csv", s.err
}

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("down") }))
	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.NoError(t, h.LivenessHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name string
		ping error
		want int
	}{
		{"store up", nil, http.StatusOK},
		{"store down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingFunc(func(context.Context) error { return tt.ping }))
			c, rec := newContext(httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.NoError(t, h.ReadinessHandler(c))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestExportHandler(t *testing.T) {
	h := NewExportHandler(stubExporter{})

	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/export/attendance.xlsx", nil))
	require.NoError(t, h.XLSXHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance_report_2025-01-10.xlsx")

	c, rec = newContext(httptest.NewRequest(http.MethodGet, "/export/attendance.csv", nil))
	require.NoError(t, h.CSVHandler(c))
	assert.Equal(t, "ID,Employee\n", rec.Body.String())
}

func TestExportHandler_Failure(t *testing.T) {
	h := NewExportHandler(stubExporter{err: errors.New("store unavailable")})
	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/export/attendance.csv", nil))

	require.NoError(t, h.CSVHandler(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "through") }

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"valid token", "s3cret", "Bearer s3cret", http.StatusOK},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusUnauthorized},
		{"empty token rejects all", "", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/export/attendance.csv", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			c, rec := newContext(req)

			require.NoError(t, BearerAuth(tt.token)(ok)(c))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
