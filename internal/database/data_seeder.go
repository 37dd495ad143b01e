package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/repository"
)

type DataSeeder struct {
	db *sql.DB
}

func NewDataSeeder(db *sql.DB) *DataSeeder {
	return &DataSeeder{db: db}
}

var (
	firstNames = []string{"Ivan", "Anna", "Pavel", "Olga", "Sergey", "Maria", "Dmitry", "Elena", "Alexey", "Natalia"}
	lastNames  = []string{"Ivanov", "Petrova", "Sidorov", "Smirnova", "Kuznetsov", "Popova", "Volkov", "Sokolova", "Morozov", "Lebedeva"}
	positions  = []string{"Engineer", "Cashier", "Manager", "Courier", "Accountant", "Storekeeper"}
)

// SeedAdmin grants admin rights to userID. It reports false when the user
// already was an admin.
func (ds *DataSeeder) SeedAdmin(ctx context.Context, userID int64, username string) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("%w: admin id must be positive, got %d", domain.ErrInvalidInput, userID)
	}
	added, err := repository.NewAdminRepository(ds.db).Add(ctx, userID, username)
	if err != nil {
		return false, err
	}
	if added {
		fmt.Printf("✅ Admin %d added\n", userID)
	} else {
		fmt.Printf("ℹ️  Admin %d already exists\n", userID)
	}
	return added, nil
}

// RevokeAdmin removes admin rights from userID.
func (ds *DataSeeder) RevokeAdmin(ctx context.Context, userID int64) error {
	if err := repository.NewAdminRepository(ds.db).Remove(ctx, userID); err != nil {
		return err
	}
	fmt.Printf("✅ Admin %d removed\n", userID)
	return nil
}

// SeedDemo creates numEmployees employees and marks each of them present on
// a random subset of the days ending at today.
func (ds *DataSeeder) SeedDemo(ctx context.Context, numEmployees, days int, today domain.Date) error {
	start := time.Now()
	fmt.Println("🚀 Seeding demo data...")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	repo := repository.NewEmployeeRepository(ds.db)

	// 1. Employees
	fmt.Println("👥 Creating employees...")
	var ids []int64
	for i := 0; i < numEmployees; i++ {
		name := fmt.Sprintf("%s %s", lastNames[rng.Intn(len(lastNames))], firstNames[rng.Intn(len(firstNames))])
		position := positions[rng.Intn(len(positions))]
		e, err := repo.Create(ctx, domain.NewEmployee{FullName: name, Position: &position})
		if err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		ids = append(ids, e.ID)
	}
	fmt.Printf("✅ Created %d employees\n", len(ids))

	// 2. Attendance marks, roughly four days in five
	fmt.Println("✅ Creating attendance marks...")
	var marks []domain.AttendanceMark
	for _, id := range ids {
		for d := 0; d < days; d++ {
			if rng.Intn(5) == 0 {
				continue
			}
			marks = append(marks, domain.AttendanceMark{EmployeeID: id, CheckDate: today.AddDays(-d)})
		}
	}

	inserted, err := ds.batchInsertMarks(ctx, marks)
	if err != nil {
		return fmt.Errorf("failed to insert marks: %w", err)
	}
	fmt.Printf("✅ Created %d attendance marks\n", inserted)

	elapsed := time.Since(start)
	fmt.Printf("🎉 Done in %v\n", elapsed)
	return nil
}

// batchInsertMarks inserts marks in one transaction, skipping days that are
// already marked, and returns how many rows were added.
func (ds *DataSeeder) batchInsertMarks(ctx context.Context, marks []domain.AttendanceMark) (int64, error) {
	if len(marks) == 0 {
		return 0, nil
	}

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance (employee_id, check_date)
		VALUES ($1, $2)
		ON CONFLICT (employee_id, check_date) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, m := range marks {
		res, err := stmt.ExecContext(ctx, m.EmployeeID, m.CheckDate)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	return inserted, tx.Commit()
}

// ClearData removes every employee and mark. Admins are kept.
func (ds *DataSeeder) ClearData(ctx context.Context) error {
	fmt.Println("🗑️  Clearing data...")

	if _, err := ds.db.ExecContext(ctx, "TRUNCATE attendance, employees RESTART IDENTITY"); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	fmt.Println("✅ Cleared employees and attendance")
	return nil
}

// Presets
type SeedPreset string

const (
	PresetSmall  SeedPreset = "small"
	PresetMedium SeedPreset = "medium"
	PresetLarge  SeedPreset = "large"
)

// GetPresetConfig returns the employee count and day span for a preset.
func GetPresetConfig(preset SeedPreset) (numEmployees, days int) {
	switch preset {
	case PresetSmall:
		return 5, 7
	case PresetMedium:
		return 20, 30
	case PresetLarge:
		return 100, 90
	default:
		return 20, 30
	}
}
