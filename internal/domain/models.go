package domain

import "time"

// ==================== ATTENDANCE LEDGER ====================

// Employee represents the employees table
type Employee struct {
	ID             int64     `json:"id" db:"id"`
	FullName       string    `json:"full_name" db:"full_name"`
	Position       *string   `json:"position,omitempty" db:"position"`
	TelegramID     *int64    `json:"telegram_id,omitempty" db:"telegram_id"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	RegisteredDate time.Time `json:"registered_date" db:"registered_date"`
}

// NewEmployee carries the fields supplied when an employee is registered.
type NewEmployee struct {
	FullName   string
	Position   *string
	TelegramID *int64
}

// AttendanceMark represents the attendance table: one row per employee per day.
type AttendanceMark struct {
	ID         int64     `json:"id" db:"id"`
	EmployeeID int64     `json:"employee_id" db:"employee_id"`
	CheckDate  Date      `json:"check_date" db:"check_date"`
	MarkedDate time.Time `json:"marked_date" db:"marked_date"`
}

// AdminPrincipal represents the admins table
type AdminPrincipal struct {
	ID       int64   `json:"id" db:"id"`
	UserID   int64   `json:"user_id" db:"user_id"`
	Username *string `json:"username,omitempty" db:"username"`
}

// ==================== REPORTS ====================

// EmployeeMarkCount is one line of an aggregate report.
type EmployeeMarkCount struct {
	EmployeeID int64  `json:"employee_id"`
	FullName   string `json:"full_name"`
	IsActive   bool   `json:"is_active"`
	Marks      int    `json:"marks"`
}

// GeneralReport aggregates the whole ledger.
// PerEmployee is ordered by Marks descending, then FullName ascending.
type GeneralReport struct {
	TotalEmployees  int                 `json:"total_employees"`
	ActiveEmployees int                 `json:"active_employees"`
	TotalMarks      int                 `json:"total_marks"`
	DistinctDates   int                 `json:"distinct_dates"`
	PerEmployee     []EmployeeMarkCount `json:"per_employee"`
	GeneratedOn     Date                `json:"generated_on"`
}

// EmployeeReport is an employee with its full mark history, newest first.
type EmployeeReport struct {
	Employee Employee         `json:"employee"`
	Marks    []AttendanceMark `json:"marks"`
}

// PeriodReport holds mark counts for marks dated within [Start, End].
type PeriodReport struct {
	Start       Date                `json:"start"`
	End         Date                `json:"end"`
	PerEmployee []EmployeeMarkCount `json:"per_employee"`
}

// TotalMarks sums the per-employee counts of the period.
func (r *PeriodReport) TotalMarks() int {
	total := 0
	for _, c := range r.PerEmployee {
		total += c.Marks
	}
	return total
}
