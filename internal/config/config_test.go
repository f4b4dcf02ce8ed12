package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"GH_DB_HOST":      "localhost",
		"GH_DB_NAME":      "garanthub",
		"GH_DB_USER":      "garanthub",
		"GH_DB_PASSWORD":  "secret",
		"GH_JWT_JWKS_URL": "https://idp.example.com/.well-known/jwks.json",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.AttachmentsBucket != DefaultBucket {
		t.Errorf("AttachmentsBucket = %q, ожидается %q", cfg.AttachmentsBucket, DefaultBucket)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, ожидается 30s", cfg.CacheTTL)
	}
	if cfg.MaxUploadSize != 50<<20 {
		t.Errorf("MaxUploadSize = %d, ожидается 50 МБ", cfg.MaxUploadSize)
	}
	if cfg.SignedURLTTL != time.Hour {
		t.Errorf("SignedURLTTL = %v, ожидается 1h", cfg.SignedURLTTL)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{"GH_DB_HOST", "GH_DB_NAME", "GH_DB_USER", "GH_DB_PASSWORD", "GH_JWT_JWKS_URL"}

	for _, key := range required {
		t.Run(key, func(t *testing.T) {
			envs := minimalEnvs()
			envs[key] = ""
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatalf("ожидалась ошибка при отсутствии %s", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("ошибка %q не упоминает %s", err.Error(), key)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "порт не число", key: "GH_PORT", value: "abc"},
		{name: "порт вне диапазона", key: "GH_PORT", value: "70000"},
		{name: "неизвестный уровень логов", key: "GH_LOG_LEVEL", value: "trace"},
		{name: "неизвестный формат логов", key: "GH_LOG_FORMAT", value: "xml"},
		{name: "неизвестный SSL режим", key: "GH_DB_SSL_MODE", value: "prefer"},
		{name: "некорректный TTL кэша", key: "GH_CACHE_TTL", value: "10"},
		{name: "нулевой размер кэша", key: "GH_CACHE_SIZE", value: "0"},
		{name: "слишком большой upload", key: "GH_MAX_UPLOAD_MB", value: "4096"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.value
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Fatalf("ожидалась ошибка для %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_S3RequiresCredentials(t *testing.T) {
	envs := minimalEnvs()
	envs["GH_S3_ENDPOINT"] = "https://x.supabase.co/storage/v1/s3"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка: endpoint задан без ключей")
	}

	t.Setenv("GH_S3_ACCESS_KEY", "key")
	t.Setenv("GH_S3_SECRET_KEY", "secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.S3Endpoint != "https://x.supabase.co/storage/v1/s3" {
		t.Errorf("S3Endpoint = %q", cfg.S3Endpoint)
	}
}

func TestLoad_BucketFromURL(t *testing.T) {
	envs := minimalEnvs()
	envs["GH_ATTACHMENTS_BUCKET"] = "https://x.supabase.co/storage/v1/my-bucket/"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.AttachmentsBucket != "my-bucket" {
		t.Errorf("AttachmentsBucket = %q, ожидается my-bucket", cfg.AttachmentsBucket)
	}
	if cfg.AttachmentsBucketRaw != "https://x.supabase.co/storage/v1/my-bucket/" {
		t.Errorf("AttachmentsBucketRaw = %q", cfg.AttachmentsBucketRaw)
	}
}

func TestResolveBucketName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "пустое значение", raw: "", want: "attachments"},
		{name: "только пробелы", raw: "   ", want: "attachments"},
		{name: "простое имя", raw: "docs", want: "docs"},
		{name: "URL S3-шлюза → s3 → по умолчанию", raw: "https://x.supabase.co/storage/v1/s3", want: "attachments"},
		{name: "URL с именем bucket", raw: "https://x.supabase.co/storage/v1/my-bucket", want: "my-bucket"},
		{name: "URL с завершающим слешем", raw: "https://x.supabase.co/storage/v1/my-bucket//", want: "my-bucket"},
		{name: "URL без пути", raw: "https://x.supabase.co", want: "attachments"},
		{name: "http-схема", raw: "http://minio:9000/letters", want: "letters"},
		{name: "имя s3 без URL", raw: "s3", want: "attachments"},
		{name: "имя S3 в другом регистре не корректируется", raw: "S3", want: "S3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBucketName(tt.raw)
			if got != tt.want {
				t.Errorf("ResolveBucketName(%q) = %q, ожидается %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.input)
		if err != nil {
			t.Errorf("parseLogLevel(%q) ошибка: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, ожидается %v", tt.input, got, tt.want)
		}
	}
}
