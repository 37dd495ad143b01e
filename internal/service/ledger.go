package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/logger"
)

// registerRequest is validated before anything touches the store.
type registerRequest struct {
	FullName string  `validate:"required,max=200"`
	Position *string `validate:"omitempty,max=200"`
}

var fieldLabels = map[string]string{
	"FullName": "name",
	"Position": "position",
}

// describeValidation turns validator output into text fit for the chat.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid employee data"
	}
	fe := verrs[0]
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = strings.ToLower(fe.Field())
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters)", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

// Ledger handles business logic for employees, attendance marks and reports.
type Ledger struct {
	employees  domain.EmployeeRepository
	attendance domain.AttendanceRepository
	reports    domain.ReportRepository
	loc        *time.Location
	validate   *validator.Validate
	now        func() time.Time
}

// NewLedger creates a new Ledger. loc decides which calendar day is "today";
// nil means UTC.
func NewLedger(
	employees domain.EmployeeRepository,
	attendance domain.AttendanceRepository,
	reports domain.ReportRepository,
	loc *time.Location,
) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		employees:  employees,
		attendance: attendance,
		reports:    reports,
		loc:        loc,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// Today is the current calendar day in the ledger's location.
func (l *Ledger) Today() domain.Date {
	return domain.DateOf(l.now().In(l.loc))
}

// ==================== Employee Operations ====================

// RegisterEmployee creates an active employee. A principal that is already
// bound to an employee is rejected with ErrDuplicateBinding before insert;
// the unique index still catches a concurrent registration.
func (l *Ledger) RegisterEmployee(ctx context.Context, name string, position *string, principal *int64) (*domain.Employee, error) {
	req := registerRequest{FullName: strings.TrimSpace(name)}
	if position != nil {
		if p := strings.TrimSpace(*position); p != "" {
			req.Position = &p
		}
	}
	if err := l.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, describeValidation(err))
	}

	if principal != nil {
		existing, err := l.employees.GetByTelegramID(ctx, *principal)
		switch {
		case err == nil:
			logger.InfoLog(ctx, "Principal %d is already bound to employee %d", *principal, existing.ID)
			return nil, fmt.Errorf("register employee: %w", domain.ErrDuplicateBinding)
		case !errors.Is(err, domain.ErrNotFound):
			return nil, l.fail(ctx, "register employee", err)
		}
	}

	e, err := l.employees.Create(ctx, domain.NewEmployee{
		FullName:   req.FullName,
		Position:   req.Position,
		TelegramID: principal,
	})
	if err != nil {
		return nil, l.fail(ctx, "register employee", err)
	}
	logger.InfoLog(ctx, "Registered employee %d (%s)", e.ID, e.FullName)
	return e, nil
}

// ListEmployees returns employees ordered active first, then by name.
func (l *Ledger) ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	employees, err := l.employees.List(ctx, domain.EmployeeFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, l.fail(ctx, "list employees", err)
	}
	return employees, nil
}

func (l *Ledger) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	e, err := l.employees.GetByID(ctx, id)
	if err != nil {
		return nil, l.fail(ctx, "get employee", err)
	}
	return e, nil
}

func (l *Ledger) CountEmployees(ctx context.Context, activeOnly bool) (int, error) {
	n, err := l.employees.Count(ctx, domain.EmployeeFilter{ActiveOnly: activeOnly})
	if err != nil {
		return 0, l.fail(ctx, "count employees", err)
	}
	return n, nil
}

// ==================== Attendance Operations ====================

// MarkPresence records that the employee was present on day. Future days
// and inactive employees are rejected as invalid input.
func (l *Ledger) MarkPresence(ctx context.Context, employeeID int64, day domain.Date) (*domain.AttendanceMark, error) {
	if day.IsZero() {
		return nil, fmt.Errorf("%w: no date given", domain.ErrInvalidInput)
	}
	if day.After(l.Today()) {
		return nil, fmt.Errorf("%w: %s is in the future", domain.ErrInvalidInput, day.Display())
	}

	e, err := l.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, l.fail(ctx, "mark presence", err)
	}
	if !e.IsActive {
		return nil, fmt.Errorf("%w: employee %s is inactive", domain.ErrInvalidInput, e.FullName)
	}

	m, err := l.attendance.Mark(ctx, employeeID, day)
	if err != nil {
		return nil, l.fail(ctx, "mark presence", err)
	}
	logger.InfoLog(ctx, "Marked employee %d present on %s", employeeID, day)
	return m, nil
}

// CheckIn marks today for the employee bound to principal.
func (l *Ledger) CheckIn(ctx context.Context, principal int64) (*domain.Employee, *domain.AttendanceMark, error) {
	e, err := l.employees.GetByTelegramID(ctx, principal)
	if err != nil {
		return nil, nil, l.fail(ctx, "check in", err)
	}
	m, err := l.MarkPresence(ctx, e.ID, l.Today())
	if err != nil {
		return e, nil, err
	}
	return e, m, nil
}

// ==================== Report Operations ====================

func (l *Ledger) ReportGeneral(ctx context.Context) (*domain.GeneralReport, error) {
	rep, err := l.reports.General(ctx)
	if err != nil {
		return nil, l.fail(ctx, "general report", err)
	}
	rep.GeneratedOn = l.Today()
	return rep, nil
}

// ReportByEmployee returns the employee and its marks, newest first.
func (l *Ledger) ReportByEmployee(ctx context.Context, employeeID int64) (*domain.EmployeeReport, error) {
	e, err := l.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, l.fail(ctx, "employee report", err)
	}
	marks, err := l.attendance.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, l.fail(ctx, "employee report", err)
	}
	return &domain.EmployeeReport{Employee: *e, Marks: marks}, nil
}

// ReportByPeriod counts marks in [start, end]. An inverted range fails with
// ErrInvalidRange without querying the store.
func (l *Ledger) ReportByPeriod(ctx context.Context, start, end domain.Date) (*domain.PeriodReport, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: period needs both dates", domain.ErrInvalidInput)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("period %s..%s: %w", start.Display(), end.Display(), domain.ErrInvalidRange)
	}

	counts, err := l.reports.Period(ctx, start, end)
	if err != nil {
		return nil, l.fail(ctx, "period report", err)
	}
	return &domain.PeriodReport{Start: start, End: end, PerEmployee: counts}, nil
}

// fail logs err at a level matching its kind and returns it unchanged.
// Expected outcomes are info; anything else is a store failure.
func (l *Ledger) fail(ctx context.Context, op string, err error) error {
	switch {
	case domain.IsBusinessConflict(err), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidInput):
		logger.InfoLog(ctx, "%s: %v", op, err)
		return err
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.ErrorLog(ctx, "%s failed: %v", op, err)
		return err
	default:
		logger.ErrorLog(ctx, "%s failed: %v", op, err)
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
}
