package repository

import (
	"context"
	"database/sql"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/repository/builder"
)

var employeeColumns = []string{"id", "full_name", "position", "telegram_id", "is_active", "registered_date"}

type employeeRepository struct {
	db *sql.DB
}

// NewEmployeeRepository creates a new instance of EmployeeRepository
func NewEmployeeRepository(db *sql.DB) domain.EmployeeRepository {
	return &employeeRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	var (
		e          domain.Employee
		position   sql.NullString
		telegramID sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.FullName, &position, &telegramID, &e.IsActive, &e.RegisteredDate); err != nil {
		return nil, err
	}
	if position.Valid {
		e.Position = &position.String
	}
	if telegramID.Valid {
		e.TelegramID = &telegramID.Int64
	}
	return &e, nil
}

func (r *employeeRepository) Create(ctx context.Context, e domain.NewEmployee) (*domain.Employee, error) {
	query, args := builder.NewSQLBuilder().
		Insert("employees", "full_name", "position", "telegram_id").
		Values(e.FullName, e.Position, e.TelegramID).
		Returning(employeeColumns...).
		Build()

	created, err := scanEmployee(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError("create employee", err)
	}
	return created, nil
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	query, args := builder.NewSQLBuilder().
		Select(employeeColumns...).
		From("employees").
		Where("id = ?", id).
		Build()

	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError("get employee", err)
	}
	return e, nil
}

func (r *employeeRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Employee, error) {
	query, args := builder.NewSQLBuilder().
		Select(employeeColumns...).
		From("employees").
		Where("telegram_id = ?", telegramID).
		Build()

	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError("get employee by principal", err)
	}
	return e, nil
}

// List returns employees ordered by active flag descending, then name.
func (r *employeeRepository) List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	b := builder.NewSQLBuilder()
	b.Select(employeeColumns...).
		From("employees").
		OrderBy("is_active DESC", "full_name ASC", "id ASC")

	if filter.ActiveOnly {
		b.Where("is_active = ?", true)
	}

	query, args := b.Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("list employees", err)
	}
	defer rows.Close()

	employees := []domain.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, translateError("list employees", err)
		}
		employees = append(employees, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list employees", err)
	}
	return employees, nil
}

func (r *employeeRepository) Count(ctx context.Context, filter domain.EmployeeFilter) (int, error) {
	b := builder.NewSQLBuilder()
	b.Select("COUNT(*)").From("employees")
	if filter.ActiveOnly {
		b.Where("is_active = ?", true)
	}

	query, args := b.Build()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, translateError("count employees", err)
	}
	return n, nil
}
