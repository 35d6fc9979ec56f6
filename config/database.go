package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var errUnsupportedDriver = errors.New("unsupported DB_DRIVER")

type DatabaseSettings struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Tracing         bool
}

// DatabaseSettingsFromEnv reads DB_* variables. DB_DSN wins over the assembled DSN.
func DatabaseSettingsFromEnv() DatabaseSettings {
	driver := strings.ToLower(stringFromEnv("DB_DRIVER", DriverMySQL))
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = assembleDSN(driver)
	}
	return DatabaseSettings{
		Driver:          driver,
		DSN:             dsn,
		MaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 50),
		MaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		Tracing:         true,
	}
}

func assembleDSN(driver string) string {
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbHost := stringFromEnv("DB_HOST", "127.0.0.1")
	dbName := stringFromEnv("DB_NAME", "family")

	switch driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			dbHost, stringFromEnv("DB_PORT", "5432"), dbUser, dbPassword, dbName)
	case DriverSQLite:
		return stringFromEnv("DB_PATH", "family.db")
	default:
		network := "tcp"
		address := fmt.Sprintf("%s:%s", dbHost, stringFromEnv("DB_PORT", "3306"))
		// Cloud SQL unix socket, e.g. DB_HOST=/cloudsql/<CONNECTION_NAME>
		if strings.HasPrefix(dbHost, "/cloudsql/") {
			network = "unix"
			address = dbHost
		}
		return fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true&loc=UTC",
			dbUser, dbPassword, network, address, dbName)
	}
}

func dialector(s DatabaseSettings) (gorm.Dialector, error) {
	switch s.Driver {
	case DriverMySQL, "":
		return mysql.Open(s.DSN), nil
	case DriverPostgres:
		return postgres.Open(s.DSN), nil
	case DriverSQLite:
		return sqlite.Open(s.DSN), nil
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedDriver, s.Driver)
	}
}

// OpenDatabase opens a single connection attempt and tunes the pool.
func OpenDatabase(s DatabaseSettings) (*gorm.DB, error) {
	d, err := dialector(s)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, initConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if s.Driver == DriverSQLite {
		// sqlite allows one writer; a single connection keeps transactions serialized.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	} else {
		if s.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(s.MaxOpenConns)
		}
		if s.MaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(s.MaxIdleConns)
		}
		if s.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(s.ConnMaxLifetime)
		}
	}
	if s.Tracing {
		if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
			log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
		}
	}
	return db, nil
}

// ConnectDatabaseWithRetry blocks until the store is reachable and returns the handle.
// The caller owns the handle and closes it on shutdown.
func ConnectDatabaseWithRetry(s DatabaseSettings) *gorm.DB {
	var attempt int
	for {
		attempt++
		db, err := OpenDatabase(s)
		if err == nil {
			log.Printf("connected to database (driver=%s attempt=%d)", s.Driver, attempt)
			return db
		}
		if errors.Is(err, errUnsupportedDriver) {
			log.Fatalf("database: %v", err)
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// CloseDatabase releases the pool behind db.
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func initLog() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}
