package repository

import (
	"context"
	"database/sql"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/repository/builder"
)

const generalTotalsQuery = `
SELECT
	(SELECT COUNT(*) FROM employees),
	(SELECT COUNT(*) FROM employees WHERE is_active),
	(SELECT COUNT(*) FROM attendance),
	(SELECT COUNT(DISTINCT check_date) FROM attendance)`

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new instance of ReportRepository
func NewReportRepository(db *sql.DB) domain.ReportRepository {
	return &reportRepository{db: db}
}

// General returns the ledger totals and the mark count of every employee,
// most marks first, ties broken by name and then id.
func (r *reportRepository) General(ctx context.Context) (*domain.GeneralReport, error) {
	var rep domain.GeneralReport
	err := r.db.QueryRowContext(ctx, generalTotalsQuery).
		Scan(&rep.TotalEmployees, &rep.ActiveEmployees, &rep.TotalMarks, &rep.DistinctDates)
	if err != nil {
		return nil, translateError("general report", err)
	}

	query, args := builder.NewSQLBuilder().
		Select("e.id", "e.full_name", "e.is_active", "COUNT(a.id) AS marks").
		From("employees e").
		Join("LEFT", "attendance a", "a.employee_id = e.id").
		GroupBy("e.id", "e.full_name", "e.is_active").
		OrderBy("marks DESC", "e.full_name ASC", "e.id ASC").
		Build()

	counts, err := r.queryCounts(ctx, "general report", query, args)
	if err != nil {
		return nil, err
	}
	rep.PerEmployee = counts
	return &rep, nil
}

// Period counts marks dated within [start, end]. Active employees with no
// marks in the period are listed with zero; inactive ones only if they
// have marks.
func (r *reportRepository) Period(ctx context.Context, start, end domain.Date) ([]domain.EmployeeMarkCount, error) {
	query, args := builder.NewSQLBuilder().
		Select("e.id", "e.full_name", "e.is_active", "COUNT(a.id) AS marks").
		From("employees e").
		Join("LEFT", "attendance a", "a.employee_id = e.id AND a.check_date BETWEEN ? AND ?", start, end).
		GroupBy("e.id", "e.full_name", "e.is_active").
		Having("COUNT(a.id) > 0 OR e.is_active").
		OrderBy("marks DESC", "e.full_name ASC", "e.id ASC").
		Build()

	return r.queryCounts(ctx, "period report", query, args)
}

func (r *reportRepository) queryCounts(ctx context.Context, op, query string, args []interface{}) ([]domain.EmployeeMarkCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(op, err)
	}
	defer rows.Close()

	counts := []domain.EmployeeMarkCount{}
	for rows.Next() {
		var c domain.EmployeeMarkCount
		if err := rows.Scan(&c.EmployeeID, &c.FullName, &c.IsActive, &c.Marks); err != nil {
			return nil, translateError(op, err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(op, err)
	}
	return counts, nil
}
