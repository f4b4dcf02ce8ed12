// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// GarantHUB мониторит зависимости:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - IdP — HTTP checker к JWKS endpoint (critical)
//   - объектное хранилище — HTTP checker к S3 endpoint (если задан GH_S3_ENDPOINT)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для IdP и S3
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthTargets — адреса проверяемых зависимостей.
type DephealthTargets struct {
	// PostgresURL — для меток метрик, не для подключения
	PostgresURL string
	JWKSURL     string
	// S3Endpoint — пусто, если используется хранилище в памяти
	S3Endpoint string
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
// db — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool().
func NewDephealthService(
	serviceID string,
	group string,
	db *sql.DB,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, db, targets, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	db *sql.DB,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, db, targets, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

// healthPath возвращает путь URL для HTTP-проверки; без пути — fallback.
func healthPath(rawURL, fallback string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" && parsed.Path != "/" {
		return parsed.Path
	}
	return fallback
}

func newDephealthService(
	serviceID string,
	group string,
	db *sql.DB,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool.
		// Используем pgcheck.New + dephealth.AddDependency напрямую,
		// чтобы не тянуть contrib/sqldb с транзитивной зависимостью на MySQL.
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dephealth.FromURL(targets.PostgresURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
		// IdP — путь самого JWKS URL подтверждает доступность OIDC endpoints
		dephealth.HTTP("idp-jwks",
			dephealth.FromURL(targets.JWKSURL),
			dephealth.WithHTTPHealthPath(healthPath(targets.JWKSURL, "/")),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
	}
	if targets.S3Endpoint != "" {
		// S3-шлюзы отвечают на корневой путь; вложения — не критичная зависимость
		opts = append(opts, dephealth.HTTP("object-storage",
			dephealth.FromURL(targets.S3Endpoint),
			dephealth.WithHTTPHealthPath(healthPath(targets.S3Endpoint, "/")),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(false),
		))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
