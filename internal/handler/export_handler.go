package handler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// ReportExporter renders the general attendance report.
type ReportExporter interface {
	GeneralReportXLSX(ctx context.Context) ([]byte, string, error)
	GeneralReportCSV(ctx context.Context) ([]byte, string, error)
}

type ExportHandler struct {
	svc ReportExporter
}

func NewExportHandler(svc ReportExporter) *ExportHandler {
	return &ExportHandler{svc: svc}
}

func (h *ExportHandler) XLSXHandler(c echo.Context) error {
	data, name, err := h.svc.GeneralReportXLSX(c.Request().Context())
	if err != nil {
		return ResponseError(c, http.StatusServiceUnavailable, "Failed to generate excel file", err)
	}
	return attachment(c, contentTypeXLSX, name, data)
}

func (h *ExportHandler) CSVHandler(c echo.Context) error {
	data, name, err := h.svc.GeneralReportCSV(c.Request().Context())
	if err != nil {
		return ResponseError(c, http.StatusServiceUnavailable, "Failed to generate csv file", err)
	}
	return attachment(c, contentTypeCSV, name, data)
}

func attachment(c echo.Context, contentType, name string, data []byte) error {
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, contentType, data)
}

// BearerAuth rejects requests whose Authorization header does not carry
// token. An empty token rejects everything.
func BearerAuth(token string) echo.MiddlewareFunc {
	want := []byte(token)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				return ResponseError(c, http.StatusUnauthorized, "Unauthorized", nil)
			}
			return next(c)
		}
	}
}
