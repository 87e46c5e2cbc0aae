package database

import (
	"fmt"
	"time"

	"github.com/otcheredev/nutricore/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

// Connect establishes database connection and runs migrations
func Connect(cfg Config) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	// Configure GORM logger
	var gormLogger logger.Interface
	switch cfg.LogLevel {
	case "silent":
		gormLogger = logger.Default.LogMode(logger.Silent)
	case "error":
		gormLogger = logger.Default.LogMode(logger.Error)
	case "warn":
		gormLogger = logger.Default.LogMode(logger.Warn)
	default:
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB for connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	DB = db

	// Run auto-migrations
	if err := AutoMigrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := EnableRowSecurity(); err != nil {
		return fmt.Errorf("failed to install row security: %w", err)
	}

	log.Info().Msg("Database connected and migrated")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return DB.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Patient{},
		&models.ProtocolInstance{},
		&models.FoodItem{},
		&models.Meal{},
		&models.MealItem{},
		&models.FoodSnapshot{},
		&models.PlanVersion{},
		&models.PlanPublication{},
		&models.IntegrityCheckRun{},
		&models.IntegrityIssue{},
		&models.AuditLog{},
	)
}

// tenantTables are the row-secured tables. food_items is global reference
// data and the integrity/audit tables are written on the administrative
// path, so neither carries a tenant policy.
var tenantTables = []string{
	"users",
	"patients",
	"protocol_instances",
	"meals",
	"meal_items",
	"food_snapshots",
	"plan_versions",
	"plan_publications",
}

// tenantPolicyExpr gates every row on the transaction-local session binding.
// An unbound connection (migrations, the integrity auditor, denial audit
// writes) sees everything; a bound transaction sees only its own tenant
// unless it is owner-elevated.
const tenantPolicyExpr = `
	COALESCE(current_setting('app.tenant_id', true), '') = ''
	OR current_setting('app.owner_mode', true) = 'true'
	OR tenant_id::text = current_setting('app.tenant_id', true)`

// rowSecurityStatements builds the policy DDL for one table. DROP before
// CREATE keeps the install idempotent across restarts.
func rowSecurityStatements(table string) []string {
	return []string{
		fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", table),
		fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", table),
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_isolation ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s)",
			table, tenantPolicyExpr, tenantPolicyExpr),
	}
}

// EnableRowSecurity installs the row-level security policies the session
// binding feeds. With these in place the store itself filters by the
// app.tenant_id / app.owner_mode settings each transaction binds, backing
// the scoped client's own WHERE clauses.
func EnableRowSecurity() error {
	for _, table := range tenantTables {
		for _, stmt := range rowSecurityStatements(table) {
			if err := DB.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to secure table %s: %w", table, err)
			}
		}
	}
	log.Info().Int("tables", len(tenantTables)).Msg("Row security policies installed")
	return nil
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
