package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/repository/builder"
)

type adminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new instance of AdminRepository
func NewAdminRepository(db *sql.DB) domain.AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	query, args := builder.NewSQLBuilder().
		Select("1").
		From("admins").
		Where("user_id = ?", userID).
		Limit(1).
		Build()

	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translateError("check admin", err)
	}
	return true, nil
}

func (r *adminRepository) Add(ctx context.Context, userID int64, username string) (bool, error) {
	var label *string
	if username != "" {
		label = &username
	}

	query, args := builder.NewSQLBuilder().
		Insert("admins", "user_id", "username").
		Values(userID, label).
		OnConflictDoNothing("user_id").
		Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, translateError("add admin", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, translateError("add admin", err)
	}
	return n > 0, nil
}

func (r *adminRepository) Remove(ctx context.Context, userID int64) error {
	query, args := builder.NewSQLBuilder().
		Delete("admins").
		Where("user_id = ?", userID).
		Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return translateError("remove admin", err)
	}
	return nil
}

func (r *adminRepository) List(ctx context.Context) ([]domain.AdminPrincipal, error) {
	query, args := builder.NewSQLBuilder().
		Select("id", "user_id", "username").
		From("admins").
		OrderBy("id ASC").
		Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("list admins", err)
	}
	defer rows.Close()

	admins := []domain.AdminPrincipal{}
	for rows.Next() {
		var (
			a        domain.AdminPrincipal
			username sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &username); err != nil {
			return nil, translateError("list admins", err)
		}
		if username.Valid {
			a.Username = &username.String
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list admins", err)
	}
	return admins, nil
}
