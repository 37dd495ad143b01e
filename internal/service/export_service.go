package service

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/pkg/simpleexcel"
)

//go:embed report_layout.yaml
var reportLayout []byte

// ReportSource is the part of the Ledger the exporter needs.
type ReportSource interface {
	ReportGeneral(ctx context.Context) (*domain.GeneralReport, error)
}

// ExportService renders the general report as a spreadsheet or CSV file.
type ExportService struct {
	reports ReportSource
}

func NewExportService(reports ReportSource) *ExportService {
	return &ExportService{reports: reports}
}

// GeneralReportXLSX returns the workbook bytes and a file name for it.
func (s *ExportService) GeneralReportXLSX(ctx context.Context) ([]byte, string, error) {
	exporter, rep, err := s.prepare(ctx)
	if err != nil {
		return nil, "", err
	}
	raw, err := exporter.ToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("render xlsx: %w", err)
	}
	return raw, fileName(rep, "xlsx"), nil
}

// GeneralReportCSV returns the same layout as CSV.
func (s *ExportService) GeneralReportCSV(ctx context.Context) ([]byte, string, error) {
	exporter, rep, err := s.prepare(ctx)
	if err != nil {
		return nil, "", err
	}
	raw, err := exporter.ToCSVBytes()
	if err != nil {
		return nil, "", fmt.Errorf("render csv: %w", err)
	}
	return raw, fileName(rep, "csv"), nil
}

func (s *ExportService) prepare(ctx context.Context) (*simpleexcel.DataExporter, *domain.GeneralReport, error) {
	rep, err := s.reports.ReportGeneral(ctx)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := simpleexcel.NewDataExporterFromYAML(reportLayout)
	if err != nil {
		return nil, nil, fmt.Errorf("load report layout: %w", err)
	}
	exporter.RegisterFormatter("status", func(v interface{}) interface{} {
		if active, ok := v.(bool); ok && !active {
			return "inactive"
		}
		return "active"
	})

	exporter.BindSectionData("summary", []map[string]interface{}{
		{"metric": "Generated on", "value": rep.GeneratedOn.Display()},
		{"metric": "Employees", "value": rep.TotalEmployees},
		{"metric": "Active employees", "value": rep.ActiveEmployees},
		{"metric": "Attendance marks", "value": rep.TotalMarks},
		{"metric": "Days with marks", "value": rep.DistinctDates},
	})
	exporter.BindSectionData("employees", rep.PerEmployee)

	return exporter, rep, nil
}

func fileName(rep *domain.GeneralReport, ext string) string {
	return fmt.Sprintf("attendance_report_%s.%s", rep.GeneratedOn, ext)
}
