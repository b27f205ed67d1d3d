package database

import (
	"fmt"

	"requestflow/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects the database backend
type Options struct {
	Driver string
	DSN    string
	Debug  bool
}

// NewConnection initializes a new connection pool using GORM and migrates the schema
func NewConnection(opts Options, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	logLevel := gormlogger.Warn
	if opts.Debug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(dialector, GormConfig(logLevel))
	if err != nil {
		return nil, err
	}

	if opts.Driver == DriverSQLite {
		// in-memory and file databases both serialize writers
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	logger.Info("Database ready", zap.String("driver", opts.Driver))

	return db, nil
}

// GormConfig is shared by every connection. Migrations skip relations:
// per-domain tables go through Table() and cannot resolve their belongs-to owners.
func GormConfig(level gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(level),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		IgnoreRelationshipsWhenMigrating:         true,
	}
}

// Migrate creates the shared tables and one set of per-domain tables for each domain.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Department{},
		&model.Team{},
		&model.TeamMember{},
		&model.RosterEntry{},
		&model.PurchaseRequest{},
		&model.TravelRequest{},
		&model.SubmissionRun{},
		&model.AuditLog{},
	)
	if err != nil {
		return err
	}

	for _, d := range model.Domains {
		if err := migrateDomain(db, d); err != nil {
			return fmt.Errorf("%s tables: %w", d, err)
		}
	}
	return nil
}

func migrateDomain(db *gorm.DB, d model.Domain) error {
	tables := []struct {
		collection string
		model      interface{}
		indexes    []string
	}{
		{
			collection: model.CollectionApprovals,
			model:      &model.Approval{},
			indexes: []string{
				"CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_request_hierarchy ON %[1]s (request_id, hierarchy)",
				"CREATE INDEX IF NOT EXISTS idx_%[1]s_approver_status ON %[1]s (approver_id, status)",
			},
		},
		{
			collection: model.CollectionDiscussions,
			model:      &model.Discussion{},
			indexes: []string{
				"CREATE INDEX IF NOT EXISTS idx_%[1]s_request ON %[1]s (request_id)",
				"CREATE INDEX IF NOT EXISTS idx_%[1]s_recipient ON %[1]s (recipient_id)",
			},
		},
		{
			collection: model.CollectionAttachments,
			model:      &model.Attachment{},
			indexes: []string{
				"CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_file_name ON %[1]s (file_name)",
				"CREATE INDEX IF NOT EXISTS idx_%[1]s_request ON %[1]s (request_id)",
			},
		},
	}

	for _, t := range tables {
		name := d.Table(t.collection)
		if err := db.Table(name).AutoMigrate(t.model); err != nil {
			return err
		}
		for _, stmt := range t.indexes {
			if err := db.Exec(fmt.Sprintf(stmt, name)).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
