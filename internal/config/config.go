package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// ErrInvalidConfig конфигурация не прошла валидацию
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config корневая конфигурация сервиса.
// Значения читаются из TOML, затем переопределяются переменными окружения (теги env).
type Config struct {
	Server          ServerConfig          `toml:"server"`
	Database        DatabaseConfig        `toml:"database"`
	Logs            LogsConfig            `toml:"logs"`
	Metrics         MetricsConfig         `toml:"metrics"`
	Redis           RedisConfig           `toml:"redis"`
	ProviderService ProviderServiceConfig `toml:"provider_service"`
	Payment         PaymentConfig         `toml:"payment"`
	Notifications   NotificationsConfig   `toml:"notifications"`
	Booking         BookingConfig         `toml:"booking"`
	Signaling       SignalingConfig       `toml:"signaling"`
	Auth            AuthConfig            `toml:"auth"`
	Jitsi           JitsiConfig           `toml:"jitsi"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver postgres или memory (только для локальной разработки)
	Driver          string `toml:"driver" env:"DB_DRIVER"`
	Host            string `toml:"host" env:"DB_HOST"`
	Port            int    `toml:"port" env:"DB_PORT"`
	User            string `toml:"user" env:"DB_USER"`
	Password        string `toml:"password" env:"DB_PASSWORD"`
	DBName          string `toml:"dbname" env:"DB_NAME"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN строка подключения для lib/pq.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	File   string `toml:"file" env:"LOG_FILE"`
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format" env:"LOG_FORMAT"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Path        string `toml:"path"`
}

type RedisConfig struct {
	Addr     string `toml:"addr" env:"REDIS_ADDR"`
	Password string `toml:"password" env:"REDIS_PASSWORD"`
	DB       int    `toml:"db"`
	// ChatTTLHours сколько хранится история чата сессии
	ChatTTLHours int `toml:"chat_ttl_hours"`
	// ChatMaxMessages сколько последних сообщений сессии хранится
	ChatMaxMessages int `toml:"chat_max_messages"`
}

type ProviderServiceConfig struct {
	URL     string `toml:"url" env:"PROVIDER_SERVICE_URL"`
	Timeout int    `toml:"timeout"`
}

type PaymentConfig struct {
	// Enabled false: платежи не списываются (offline-шлюз), для dev-окружения
	Enabled       bool   `toml:"enabled" env:"PAYMENT_ENABLED"`
	SecretKey     string `toml:"secret_key" env:"STRIPE_SECRET_KEY"`
	Currency      string `toml:"currency"`
	PaymentMethod string `toml:"payment_method"`
}

type NotificationsConfig struct {
	Enabled       bool    `toml:"enabled"`
	Queue         string  `toml:"queue"`
	QueueSize     int     `toml:"queue_size"`
	Workers       int     `toml:"workers"`
	MaxRetries    int     `toml:"max_retries"`
	InitialDelay  int     `toml:"initial_delay_ms"`
	MaxDelay      int     `toml:"max_delay_ms"`
	BackoffFactor float64 `toml:"backoff_factor"`
	// TaskMaxRetry сколько раз asynq повторит доставку на стороне воркера уведомлений
	TaskMaxRetry int `toml:"task_max_retry"`
}

type BookingConfig struct {
	Timezone                string `toml:"timezone" env:"BOOKING_TIMEZONE"`
	MinDurationMinutes      int    `toml:"min_duration_minutes"`
	MaxDurationMinutes      int    `toml:"max_duration_minutes"`
	CancellationWindowHours int    `toml:"cancellation_window_hours"`
	SlotStepMinutes         int    `toml:"slot_step_minutes"`
	LockTimeoutSeconds      int    `toml:"lock_timeout_seconds"`
	ChargeTimeoutSeconds    int    `toml:"charge_timeout_seconds"`
}

// Location часовой пояс, в котором интерпретируются дата и время бронирования.
func (b BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

func (b BookingConfig) CancellationWindow() time.Duration {
	return time.Duration(b.CancellationWindowHours) * time.Hour
}

type SignalingConfig struct {
	IdleTimeoutMinutes  int      `toml:"idle_timeout_minutes"`
	ReapIntervalSeconds int      `toml:"reap_interval_seconds"`
	SendBufferSize      int      `toml:"send_buffer_size"`
	MaxFrameBytes       int      `toml:"max_frame_bytes"`
	FramesPerSecond     float64  `toml:"frames_per_second"`
	FrameBurst          int      `toml:"frame_burst"`
	MaxViolations       int      `toml:"max_violations"`
	ChatQueueSize       int      `toml:"chat_queue_size"`
	AllowedOrigins      []string `toml:"allowed_origins" env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

type AuthConfig struct {
	Secret   string `toml:"secret" env:"AUTH_TOKEN_SECRET"`
	Issuer   string `toml:"issuer"`
	Audience string `toml:"audience"`
}

// JitsiConfig видеокомнаты для video-сессий. Пустой secret: комнаты без JWT.
type JitsiConfig struct {
	Domain        string `toml:"domain" env:"JITSI_DOMAIN"`
	AppID         string `toml:"app_id" env:"JITSI_APP_ID"`
	Secret        string `toml:"secret" env:"JITSI_JWT_SECRET"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// Load читает TOML-файл, применяет переменные окружения и значения по умолчанию.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.HTTPPort, 8080)
	setDefault(&c.Server.ReadTimeout, 15)
	setDefault(&c.Server.WriteTimeout, 15)
	setDefault(&c.Server.IdleTimeout, 60)
	setDefault(&c.Server.ShutdownTimeout, 10)

	setDefault(&c.Database.Driver, "postgres")
	setDefault(&c.Database.Port, 5432)
	setDefault(&c.Database.SSLMode, "disable")
	setDefault(&c.Database.MaxOpenConns, 25)
	setDefault(&c.Database.MaxIdleConns, 5)
	setDefault(&c.Database.ConnMaxLifetime, 300)

	setDefault(&c.Logs.Level, "info")
	setDefault(&c.Logs.Format, "json")

	setDefault(&c.Metrics.ServiceName, "mindbuddy-scheduler")
	setDefault(&c.Metrics.Path, "/metrics")

	setDefault(&c.Redis.ChatTTLHours, 24*30)
	setDefault(&c.Redis.ChatMaxMessages, 1000)

	setDefault(&c.ProviderService.Timeout, 5)

	setDefault(&c.Payment.Currency, "krw")

	setDefault(&c.Notifications.Queue, "notifications")
	setDefault(&c.Notifications.QueueSize, 1024)
	setDefault(&c.Notifications.Workers, 2)
	setDefault(&c.Notifications.MaxRetries, 3)
	setDefault(&c.Notifications.InitialDelay, 200)
	setDefault(&c.Notifications.MaxDelay, 5000)
	setDefault(&c.Notifications.BackoffFactor, 2.0)
	setDefault(&c.Notifications.TaskMaxRetry, 10)

	setDefault(&c.Booking.Timezone, "Asia/Seoul")
	setDefault(&c.Booking.MinDurationMinutes, 30)
	setDefault(&c.Booking.MaxDurationMinutes, 120)
	setDefault(&c.Booking.CancellationWindowHours, 24)
	setDefault(&c.Booking.SlotStepMinutes, 30)
	setDefault(&c.Booking.LockTimeoutSeconds, 5)
	setDefault(&c.Booking.ChargeTimeoutSeconds, 3)

	setDefault(&c.Signaling.IdleTimeoutMinutes, 120)
	setDefault(&c.Signaling.ReapIntervalSeconds, 60)
	setDefault(&c.Signaling.SendBufferSize, 64)
	setDefault(&c.Signaling.MaxFrameBytes, 64*1024)
	setDefault(&c.Signaling.FramesPerSecond, 20)
	setDefault(&c.Signaling.FrameBurst, 40)
	setDefault(&c.Signaling.MaxViolations, 5)
	setDefault(&c.Signaling.ChatQueueSize, 256)

	setDefault(&c.Jitsi.Domain, "meet.jit.si")
	setDefault(&c.Jitsi.AppID, "mindbuddy")
	setDefault(&c.Jitsi.TokenTTLHours, 2)

	setDefault(&c.Auth.Issuer, "mindbuddy-auth")
	setDefault(&c.Auth.Audience, "mindbuddy-scheduler")
}

// Validate проверяет согласованность значений после применения defaults.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, v ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, v...))
		}
	}

	check(c.Server.HTTPPort > 0 && c.Server.HTTPPort < 65536, "server.http_port %d out of range", c.Server.HTTPPort)
	check(c.Database.Driver == "postgres" || c.Database.Driver == "memory", "database.driver must be postgres or memory, got %q", c.Database.Driver)
	if c.Database.Driver == "postgres" {
		check(c.Database.Host != "", "database.host is required")
		check(c.Database.DBName != "", "database.dbname is required")
	}
	check(c.Redis.Addr != "", "redis.addr is required")
	check(c.ProviderService.URL != "", "provider_service.url is required")
	if c.Payment.Enabled {
		check(c.Payment.SecretKey != "", "payment.secret_key (STRIPE_SECRET_KEY) is required when payment is enabled")
	}
	check(len(c.Auth.Secret) >= 32, "auth.secret (AUTH_TOKEN_SECRET) must be at least 32 bytes")

	_, err := c.Booking.Location()
	check(err == nil, "booking.timezone %q: %v", c.Booking.Timezone, err)
	check(c.Booking.MinDurationMinutes > 0 && c.Booking.MinDurationMinutes <= c.Booking.MaxDurationMinutes,
		"booking duration bounds [%d,%d] are inconsistent", c.Booking.MinDurationMinutes, c.Booking.MaxDurationMinutes)
	check(c.Booking.SlotStepMinutes > 0, "booking.slot_step_minutes must be positive")
	check(c.Booking.ChargeTimeoutSeconds < c.Booking.LockTimeoutSeconds,
		"booking.charge_timeout_seconds (%d) must be shorter than lock_timeout_seconds (%d)",
		c.Booking.ChargeTimeoutSeconds, c.Booking.LockTimeoutSeconds)
	check(c.Notifications.Workers > 0, "notifications.workers must be positive")
	check(c.Notifications.BackoffFactor >= 1, "notifications.backoff_factor must be >= 1")
	check(c.Signaling.SendBufferSize > 0, "signaling.send_buffer_size must be positive")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
