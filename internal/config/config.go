// Пакет config — загрузка и валидация конфигурации GarantHUB
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// DefaultBucket — bucket вложений по умолчанию.
const DefaultBucket = "attachments"

// Config содержит все параметры конфигурации GarantHUB.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- JWT (токены выдаёт внешний IdP) ---

	// URL JWKS endpoint IdP
	JWTJWKSURL string
	// Ожидаемый issuer (пустой — не проверяется)
	JWTIssuer string
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration

	// --- Хранилище вложений ---

	// AttachmentsBucketRaw — значение GH_ATTACHMENTS_BUCKET как есть
	AttachmentsBucketRaw string
	// AttachmentsBucket — имя bucket после коррекции (см. ResolveBucketName)
	AttachmentsBucket string
	// S3Endpoint — S3-совместимый endpoint; пустой — хранилище в памяти
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	// S3PublicURL — базовый URL для публичных ссылок на объекты
	S3PublicURL string
	// SignedURLTTL — время жизни подписанной ссылки
	SignedURLTTL time.Duration
	// MaxUploadSize — максимальный размер загружаемого файла в байтах
	MaxUploadSize int64

	// --- Кэш запросов ---

	CacheSize int
	CacheTTL  time.Duration

	// --- Ограничение частоты запросов ---

	RateLimitRPS   int
	RateLimitBurst int

	// --- RBAC ---

	// PermissionsFile — TOML-файл с правами ролей по умолчанию (опционально)
	PermissionsFile string

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("GH_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("GH_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("GH_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("GH_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("GH_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("GH_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("GH_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("GH_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("GH_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("GH_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("GH_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("GH_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("GH_DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("GH_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("GH_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	if cfg.JWTJWKSURL, err = getEnvRequired("GH_JWT_JWKS_URL"); err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("GH_JWT_ISSUER", "")
	cfg.JWTLeeway, err = getEnvDuration("GH_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GH_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("GH_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("GH_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Хранилище вложений ---

	cfg.AttachmentsBucketRaw = getEnvDefault("GH_ATTACHMENTS_BUCKET", DefaultBucket)
	cfg.AttachmentsBucket = ResolveBucketName(cfg.AttachmentsBucketRaw)

	cfg.S3Endpoint = strings.TrimRight(getEnvDefault("GH_S3_ENDPOINT", ""), "/")
	cfg.S3Region = getEnvDefault("GH_S3_REGION", "us-east-1")
	cfg.S3AccessKey = getEnvDefault("GH_S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnvDefault("GH_S3_SECRET_KEY", "")
	if cfg.S3Endpoint != "" && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("GH_S3_ACCESS_KEY и GH_S3_SECRET_KEY обязательны при заданном GH_S3_ENDPOINT")
	}
	cfg.S3PublicURL = strings.TrimRight(getEnvDefault("GH_S3_PUBLIC_URL", ""), "/")

	cfg.SignedURLTTL, err = getEnvDuration("GH_SIGNED_URL_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("GH_SIGNED_URL_TTL: %w", err)
	}

	maxUpload, err := getEnvInt("GH_MAX_UPLOAD_MB", 50)
	if err != nil {
		return nil, fmt.Errorf("GH_MAX_UPLOAD_MB: %w", err)
	}
	if maxUpload < 1 || maxUpload > 1024 {
		return nil, fmt.Errorf("GH_MAX_UPLOAD_MB: значение %d вне допустимого диапазона 1-1024", maxUpload)
	}
	cfg.MaxUploadSize = int64(maxUpload) << 20

	// --- Кэш ---

	cfg.CacheSize, err = getEnvInt("GH_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("GH_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("GH_CACHE_SIZE: значение должно быть положительным")
	}
	cfg.CacheTTL, err = getEnvDuration("GH_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GH_CACHE_TTL: %w", err)
	}

	// --- Rate limit ---

	cfg.RateLimitRPS, err = getEnvInt("GH_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("GH_RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitBurst, err = getEnvInt("GH_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("GH_RATE_LIMIT_BURST: %w", err)
	}

	cfg.PermissionsFile = getEnvDefault("GH_PERMISSIONS_FILE", "")

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("GH_DEPHEALTH_GROUP", "garanthub")
	cfg.DephealthCheckInterval, err = getEnvDuration("GH_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GH_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("GH_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GH_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// ResolveBucketName возвращает имя bucket вложений по значению из конфигурации.
//
// В GH_ATTACHMENTS_BUCKET часто попадает полный URL хранилища вместо имени.
// Тогда берётся последний непустой сегмент пути. Сегмент "s3" — это путь
// S3-шлюза (…/storage/v1/s3), а не bucket, поэтому он заменяется на DefaultBucket.
func ResolveBucketName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return DefaultBucket
	}

	if u, err := url.Parse(name); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		name = ""
		segments := strings.Split(u.Path, "/")
		for i := len(segments) - 1; i >= 0; i-- {
			if segments[i] != "" {
				name = segments[i]
				break
			}
		}
	}

	if name == "" || name == "s3" {
		return DefaultBucket
	}
	return name
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
