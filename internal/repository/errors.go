package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/locvowork/attendance_bot/internal/domain"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNotNullViolation    = "23502"

	attendanceDayConstraint   = "attendance_employee_day_key"
	employeeBindingConstraint = "employees_telegram_id_key"
)

// translateError maps driver errors onto the domain taxonomy so that callers
// never inspect pq types. op names the failing operation for the log.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case attendanceDayConstraint:
				return fmt.Errorf("%s: %w", op, domain.ErrAlreadyMarked)
			case employeeBindingConstraint:
				return fmt.Errorf("%s: %w", op, domain.ErrDuplicateBinding)
			}
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case pqCheckViolation, pqNotNullViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pqErr.Message)
		}
	}

	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
