package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sifan077/PowerQR/config"
	infraPostgres "github.com/sifan077/PowerQR/internal/infra/postgres"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso / libSQL driver
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connMaxLifetime = 5 * time.Minute
	slowThreshold   = 200 * time.Millisecond
)

// Open returns a gorm.DB for the configured driver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return OpenPostgres(cfg.Postgres)
	case config.DriverSQLite:
		return OpenSQLite(cfg.Database.SQLiteDSN)
	case config.DriverLibSQL:
		return OpenLibSQL(cfg.Database.SQLiteDSN)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Database.Driver)
	}
}

// OpenPostgres returns a gorm.DB configured for the application's Postgres instance.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	dsn := infraPostgres.ConnString(cfg)
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("database: open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: retrieve sql db: %w", err)
	}
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
	}

	return db, nil
}

// OpenSQLite opens a local SQLite database (":memory:" works for tests).
// SQLite allows a single writer, so the pool is pinned to one connection.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("database: open sqlite: %w", err)
	}
	return pinSingleConn(db)
}

// OpenLibSQL connects to a remote libSQL / Turso database.
func OpenLibSQL(dsn string) (*gorm.DB, error) {
	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open libsql: %w", err)
	}

	db, err := gorm.Open(sqlite.Dialector{Conn: conn}, gormConfig())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("database: open libsql gorm: %w", err)
	}
	return pinSingleConn(db)
}

func pinSingleConn(db *gorm.DB) (*gorm.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: retrieve sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}
