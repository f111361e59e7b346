package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins - источники, которым разрешены запросы с cookie
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres или sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	Path         string `mapstructure:"path"` // файл sqlite
	LogLevel     string `mapstructure:"log_level"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN возвращает строку подключения для gorm
func (c DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// MigrationURL возвращает URL базы для golang-migrate
func (c DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type AuthConfig struct {
	Secret         string        `mapstructure:"secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	CookieName     string        `mapstructure:"cookie_name"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	LoginRateLimit int           `mapstructure:"login_rate_limit"` // попыток входа в минуту с одного IP
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"` // пустой хост отключает email
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled сообщает, настроена ли отправка писем
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"` // пустой URL отключает публикацию событий
	Exchange string `mapstructure:"exchange"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text или json
	File   string `mapstructure:"file"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// envPrefix - префикс переменных окружения, например HB_SERVER_PORT=9000
const envPrefix = "HB"

func setDefaults(v *viper.Viper) {
	// Настройки сервера
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors_origins", []string{})

	// Настройки базы данных
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "bookkeeping")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "data/bookkeeping.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)

	// Настройки сессий
	v.SetDefault("auth.secret", "your-secret-key-here")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_name", "sessionid")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("auth.login_rate_limit", 10)

	// Настройки SMTP
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")

	// Настройки AMQP
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "bookkeeping")

	// Настройки логирования
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// NewConfig загружает конфигурацию: значения по умолчанию, затем файл,
// затем .env и переменные окружения. Пустой configFile означает
// необязательный config.yaml в текущей директории.
func NewConfig(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(configFile)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("неверный порт сервера: %d", c.Server.Port))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			problems = append(problems, fmt.Sprintf("неверный порт базы данных: %d", c.Database.Port))
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			problems = append(problems, "не указан путь к файлу sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("неизвестный драйвер базы данных: %q", c.Database.Driver))
	}

	if c.Auth.Secret == "" {
		problems = append(problems, "не задан секрет для подписи сессий")
	}
	if c.Auth.SessionTTL <= 0 {
		problems = append(problems, "время жизни сессии должно быть положительным")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("неверная стоимость bcrypt: %d", c.Auth.BcryptCost))
	}

	if c.SMTP.Enabled() && c.SMTP.From == "" {
		problems = append(problems, "не указан адрес отправителя SMTP")
	}

	if len(problems) > 0 {
		return fmt.Errorf("неверная конфигурация: %s", strings.Join(problems, "; "))
	}
	return nil
}
