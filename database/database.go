package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookkeeping/config"
	"bookkeeping/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Database представляет подключение к базе данных
type Database struct {
	DB     *gorm.DB
	driver string
}

// NewDatabase открывает подключение и приводит схему к актуальному виду:
// для postgres выполняются SQL миграции, для sqlite - автоматическая миграция моделей.
func NewDatabase(cfg config.DatabaseConfig, log *slog.Logger) (*Database, error) {
	db, err := open(cfg, log)
	if err != nil {
		return nil, err
	}

	d := &Database{DB: db, driver: cfg.Driver}

	switch cfg.Driver {
	case config.DriverPostgres:
		if err := runMigrations(cfg); err != nil {
			d.Close()
			return nil, fmt.Errorf("ошибка выполнения SQL миграций: %w", err)
		}
	case config.DriverSQLite:
		if err := autoMigrate(db); err != nil {
			d.Close()
			return nil, fmt.Errorf("ошибка автоматической миграции моделей: %w", err)
		}
	}

	if err := seedDefaultCategory(db); err != nil {
		d.Close()
		return nil, fmt.Errorf("ошибка создания категории по умолчанию: %w", err)
	}

	return d, nil
}

func open(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
	default:
		return nil, fmt.Errorf("неизвестный драйвер базы данных: %q", cfg.Driver)
	}

	level := gormLogLevel(cfg.LogLevel)
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite допускает одного писателя; для :memory: единственное соединение и есть база
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Driver возвращает имя драйвера базы данных
func (d *Database) Driver() string {
	return d.driver
}

// GetDB возвращает экземпляр GORM
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// Ping проверяет доступность базы данных
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// runMigrations выполняет встроенные SQL миграции
func runMigrations(cfg config.DatabaseConfig) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка чтения встроенных миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrationURL())
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %w", err)
	}

	return nil
}

// autoMigrate выполняет автоматическую миграцию моделей
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Account{},
		&models.TransactionCategory{},
		&models.Transaction{},
		&models.PlanningTransaction{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %w", err)
	}

	return nil
}

// seedDefaultCategory создает категорию с id 0, на которую ссылаются
// транзакции после удаления их категории
func seedDefaultCategory(db *gorm.DB) error {
	return db.Exec(
		"INSERT INTO transaction_categories (id, category_type, category_name) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING",
		models.DefaultCategoryID, models.TransactionTypeExpense, models.DefaultCategoryName,
	).Error
}
