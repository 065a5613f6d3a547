package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/fulfildesk/backend/internal/infrastructure/logger"
	"github.com/fulfildesk/backend/internal/infrastructure/migration"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence"
	"github.com/fulfildesk/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	var (
		createDir string
		logLevel  string
		confirm   bool
		email     string
		name      string
	)

	flag.StringVar(&createDir, "dir", "migrations", "Directory new migrations are written to (create only)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&confirm, "confirm", false, "Confirm a destructive command (down)")
	flag.StringVar(&email, "email", "", "Owner email (bootstrap-owner only)")
	flag.StringVar(&name, "name", "Owner", "Owner display name (bootstrap-owner only)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Commands that do not touch the database
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(createDir, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath))
		return

	case "list":
		names, err := migration.ListMigrations(migrations.FS)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Embedded migrations", zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	if command == "bootstrap-owner" {
		if err := bootstrapOwner(db, log, email, name, os.Getenv("FULFIL_OWNER_PASSWORD")); err != nil {
			log.Fatal("Failed to bootstrap owner", zap.Error(err))
		}
		return
	}

	m, err := migration.New(db, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if !confirm && !slices.Contains(args[1:], "-confirm") {
			log.Fatal("Refusing to roll back every migration without -confirm")
		}
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "status", "version":
		st, err := m.Status()
		if err != nil {
			log.Fatal("Failed to read migration status", zap.Error(err))
		}
		log.Info("Migration status",
			zap.Uint("version", st.Version),
			zap.Uint("latest", st.Latest),
			zap.Bool("dirty", st.Dirty),
			zap.Bool("pending", st.Pending()))

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// bootstrapOwner creates the first owner account. Owners are otherwise only
// created by other owners, so a fresh installation needs this once.
func bootstrapOwner(db *sql.DB, log *zap.Logger, email, name, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("-email and FULFIL_OWNER_PASSWORD are required")
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("open gorm: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := persistence.NewGormUserRepository(gdb)
	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		log.Info("Owner already exists, nothing to do", zap.String("email", email))
		return nil
	}

	owner, err := identity.NewUser(email, name, password, identity.PrimaryRoleOwner)
	if err != nil {
		return err
	}
	if err := users.Create(ctx, owner); err != nil {
		return err
	}
	log.Info("Owner created", zap.String("user_id", owner.ID.String()), zap.String("email", owner.Email))
	return nil
}

func printUsage() {
	fmt.Println(`Fulfildesk database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down -confirm         Roll back every migration
  step <n>              Apply n migrations (negative rolls back)
  status                Show applied and latest versions
  force <version>       Record a version without running it (repairs a dirty state)
  create <name> [desc]  Write the next numbered migration pair into -dir
  list                  List the embedded migrations
  bootstrap-owner       Create the first owner account (-email, FULFIL_OWNER_PASSWORD)

Flags:
  -dir string           Target directory for create (default: migrations)
  -log-level string     debug, info, warn or error (default: info)
  -confirm              Required by down
  -email string         Owner email for bootstrap-owner
  -name string          Owner display name for bootstrap-owner (default: Owner)

Environment Variables:
  FULFIL_DATABASE_HOST, FULFIL_DATABASE_PORT, FULFIL_DATABASE_USER,
  FULFIL_DATABASE_PASSWORD, FULFIL_DATABASE_DBNAME, FULFIL_DATABASE_SSLMODE,
  FULFIL_OWNER_PASSWORD (bootstrap-owner)`)
}
