package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/judyrop/storefront-api/config"
	"github.com/judyrop/storefront-api/models"
)

// Store owns the connection pool and hands out units of work.
type Store struct {
	db *gorm.DB
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and configures the pool.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return New(db), nil
}

// Do runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back on an error or a panic; the connection is
// returned to the pool on every path. Storage errors come back translated.
func (s *Store) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return Translate(s.db.WithContext(ctx).Transaction(fn))
}

// Read runs a query outside of any transaction.
func (s *Store) Read(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Migrate creates or updates the tables of every model.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpdateColumns maps payload keys named after the model's JSON fields onto
// database columns. Primary keys and fields hidden from JSON are never
// returned; unknown keys are dropped.
func UpdateColumns(tx *gorm.DB, model interface{}, fields map[string]interface{}) (map[string]interface{}, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	columns := make(map[string]interface{}, len(fields))
	for _, field := range stmt.Schema.Fields {
		if field.PrimaryKey || field.DBName == "" {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if value, ok := fields[name]; ok {
			columns[field.DBName] = value
		}
	}
	return columns, nil
}
