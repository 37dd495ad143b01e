package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/repository/builder"
)

type attendanceRepository struct {
	db *sql.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository
func NewAttendanceRepository(db *sql.DB) domain.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// Mark inserts the mark in one statement. The unique index on
// (employee_id, check_date) decides the winner between concurrent callers:
// the loser's insert returns no row and is reported as ErrAlreadyMarked.
func (r *attendanceRepository) Mark(ctx context.Context, employeeID int64, day domain.Date) (*domain.AttendanceMark, error) {
	query, args := builder.NewSQLBuilder().
		Insert("attendance", "employee_id", "check_date").
		Values(employeeID, day).
		OnConflictDoNothing("employee_id", "check_date").
		Returning("id", "marked_date").
		Build()

	m := domain.AttendanceMark{EmployeeID: employeeID, CheckDate: day}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.MarkedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mark attendance: %w", domain.ErrAlreadyMarked)
	}
	if err != nil {
		return nil, translateError("mark attendance", err)
	}
	return &m, nil
}

// ListByEmployee returns the marks of one employee, newest day first.
func (r *attendanceRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]domain.AttendanceMark, error) {
	query, args := builder.NewSQLBuilder().
		Select("id", "employee_id", "check_date", "marked_date").
		From("attendance").
		Where("employee_id = ?", employeeID).
		OrderBy("check_date DESC").
		Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("list marks", err)
	}
	defer rows.Close()

	marks := []domain.AttendanceMark{}
	for rows.Next() {
		var m domain.AttendanceMark
		if err := rows.Scan(&m.ID, &m.EmployeeID, &m.CheckDate, &m.MarkedDate); err != nil {
			return nil, translateError("list marks", err)
		}
		marks = append(marks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list marks", err)
	}
	return marks, nil
}
