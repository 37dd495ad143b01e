package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/locvowork/attendance_bot/internal/config"
	"github.com/locvowork/attendance_bot/internal/database"
	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/logger"
)

func main() {
	// Define flags
	action := flag.String("action", "admin", "Action to perform: admin, revoke, demo, clear")
	userID := flag.Int64("user", 0, "Telegram user id for admin/revoke (defaults to ADMIN_ID)")
	username := flag.String("username", "", "Display name stored with the admin (defaults to ADMIN_USERNAME)")
	preset := flag.String("preset", "medium", "Demo data preset: small, medium, large")
	employees := flag.Int("employees", 0, "Number of demo employees (overrides preset)")
	days := flag.Int("days", 0, "Number of days of demo marks (overrides preset)")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt for clear")

	flag.Parse()

	ctx := context.Background()

	fmt.Println("🚀 Attendance Data Seeder")
	fmt.Println(strings.Repeat("=", 50))

	if err := config.LoadEnvConfig(); err != nil {
		log.Fatalf("❌ Failed to load env config: %v", err)
	}
	cfg := config.DefaultEnvConfig
	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	for _, w := range cfg.Warnings() {
		logger.WarnLog(ctx, "%s", w)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	fmt.Println("📡 Connecting to database...")
	db, err := database.NewPostgresDB(ctx, database.Config{
		URL:             cfg.DATABASE_URL,
		MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
		MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
		ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		ConnectRetries:  cfg.DB_CONNECT_RETRIES,
		ConnectDelay:    cfg.DB_CONNECT_DELAY,
	})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("❌ %v", err)
	}

	seeder := database.NewDataSeeder(db)

	// Execute action
	switch *action {
	case "admin":
		id, name := adminTarget(*userID, *username)
		if _, err := seeder.SeedAdmin(ctx, id, name); err != nil {
			log.Fatalf("❌ Seeding admin failed: %v", err)
		}
		fmt.Println("ℹ️  A running bot with ADMIN_CACHE=true picks up admin changes after a restart.")

	case "revoke":
		id, _ := adminTarget(*userID, "")
		if err := seeder.RevokeAdmin(ctx, id); err != nil {
			log.Fatalf("❌ Revoking admin failed: %v", err)
		}

	case "demo":
		performDemo(ctx, seeder, *preset, *employees, *days)

	case "clear":
		performClear(ctx, seeder, *yes)

	default:
		fmt.Printf("❌ Unknown action: %s\n", *action)
		flag.PrintDefaults()
		return
	}

	fmt.Println("\n✅ Done!")
}

func adminTarget(userID int64, username string) (int64, string) {
	if userID == 0 {
		userID = config.DefaultEnvConfig.ADMIN_ID
	}
	if username == "" {
		username = config.DefaultEnvConfig.ADMIN_USERNAME
	}
	if userID == 0 {
		log.Fatal("❌ No admin id: pass -user or set ADMIN_ID")
	}
	return userID, username
}

func performDemo(ctx context.Context, seeder *database.DataSeeder, preset string, employees, days int) {
	numEmployees, numDays := database.GetPresetConfig(database.SeedPreset(preset))
	if employees > 0 {
		numEmployees = employees
	}
	if days > 0 {
		numDays = days
	}
	fmt.Printf("📊 Seeding %d employees over %d days\n", numEmployees, numDays)

	today := domain.Today(config.DefaultEnvConfig.Location())
	if err := seeder.SeedDemo(ctx, numEmployees, numDays, today); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}

func performClear(ctx context.Context, seeder *database.DataSeeder, yes bool) {
	if !yes {
		fmt.Println("⚠️  This will delete all employees and attendance marks!")
		fmt.Print("Continue? (yes/no): ")

		var response string
		fmt.Scanln(&response)
		if response != "yes" {
			fmt.Println("Cancelled.")
			return
		}
	}
	if err := seeder.ClearData(ctx); err != nil {
		log.Fatalf("❌ Clear failed: %v", err)
	}
}
