package domain

import "context"

// EmployeeFilter defines criteria for listing employees
type EmployeeFilter struct {
	ActiveOnly bool
}

// EmployeeRepository defines the interface for employee data access
type EmployeeRepository interface {
	Create(ctx context.Context, e NewEmployee) (*Employee, error)
	GetByID(ctx context.Context, id int64) (*Employee, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Employee, error)
	List(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	Count(ctx context.Context, filter EmployeeFilter) (int, error)
}

// AttendanceRepository defines the interface for attendance marks.
// Mark must be a single atomic statement; a second mark for the same
// employee and day returns ErrAlreadyMarked.
type AttendanceRepository interface {
	Mark(ctx context.Context, employeeID int64, day Date) (*AttendanceMark, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]AttendanceMark, error)
}

// ReportRepository runs the aggregate queries behind the reports.
type ReportRepository interface {
	General(ctx context.Context) (*GeneralReport, error)
	Period(ctx context.Context, start, end Date) ([]EmployeeMarkCount, error)
}

// AdminRepository defines the interface for the admin allow-list.
type AdminRepository interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	// Add reports whether a new row was inserted.
	Add(ctx context.Context, userID int64, username string) (bool, error)
	Remove(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]AdminPrincipal, error)
}
