// Пакет storage — объектное хранилище вложений.
//
// Реализации: S3Store (S3-совместимый endpoint, например шлюз Supabase Storage)
// и MemoryStore (разработка и тесты).
package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/svarovsky7/GarantHUB-sub002/internal/config"
)

var (
	// ErrBucketNotFound — bucket отсутствует в хранилище.
	ErrBucketNotFound = errors.New("bucket не найден")
	// ErrObjectNotFound — объект отсутствует.
	ErrObjectNotFound = errors.New("объект не найден")
)

// ObjectStore — операции с объектами одного bucket.
type ObjectStore interface {
	// Upload загружает объект. size < 0 — размер неизвестен.
	Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	// Remove удаляет объекты одним вызовом. Отсутствующие ключи не ошибка.
	Remove(ctx context.Context, keys ...string) error
	// Open открывает объект на чтение.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// PublicURL возвращает публичный адрес объекта.
	PublicURL(key string) string
	// SignedURL возвращает временную ссылку на скачивание.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Bucket возвращает имя bucket.
	Bucket() string
	// Check проверяет доступность bucket.
	Check(ctx context.Context) error
}

// operationsTotal — операции с хранилищем по типу и результату.
var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gh_storage_operations_total",
		Help: "Количество операций с объектным хранилищем",
	},
	[]string{"operation", "result"},
)

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(op, result).Inc()
}

// New создаёт хранилище по конфигурации.
// Без GH_S3_ENDPOINT используется MemoryStore.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ObjectStore, error) {
	if cfg.S3Endpoint == "" {
		logger.Warn("GH_S3_ENDPOINT не задан, вложения хранятся в памяти",
			slog.String("bucket", cfg.AttachmentsBucket),
		)
		return NewMemoryStore(cfg.AttachmentsBucket), nil
	}
	return NewS3Store(ctx, S3Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.AttachmentsBucket,
		PublicURL: cfg.S3PublicURL,
	}, logger)
}

// ReadinessChecker — проверка доступности хранилища для /health/ready.
type ReadinessChecker struct {
	store ObjectStore
}

// NewReadinessChecker создаёт проверку готовности хранилища.
func NewReadinessChecker(store ObjectStore) *ReadinessChecker {
	return &ReadinessChecker{store: store}
}

// CheckReady возвращает статус ("ok" или "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.store.Check(ctx); err != nil {
		return "fail", "хранилище недоступно: " + err.Error()
	}
	return "ok", "bucket " + c.store.Bucket() + " доступен"
}
