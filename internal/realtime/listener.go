package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel — канал NOTIFY, в который пишут триггеры gh_notify_change.
const Channel = "gh_changes"

// Invalidator — кэш, который сбрасывается по изменениям таблиц.
type Invalidator interface {
	InvalidateTables(tables ...string) int
	Purge()
}

// Listener держит выделенное соединение с LISTEN и раздаёт уведомления.
type Listener struct {
	pool   *pgxpool.Pool
	hub    *Hub
	cache  Invalidator
	logger *slog.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewListener создаёт слушателя канала gh_changes.
func NewListener(pool *pgxpool.Pool, hub *Hub, cache Invalidator, logger *slog.Logger) *Listener {
	return &Listener{
		pool:       pool,
		hub:        hub,
		cache:      cache,
		logger:     logger.With(slog.String("component", "realtime_listener")),
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run слушает уведомления до отмены ctx. Обрыв соединения
// не фатален: слушатель переподключается с нарастающей паузой.
func (l *Listener) Run(ctx context.Context) {
	backoff := l.minBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Слушатель изменений остановлен")
			return
		}
		l.logger.Error("Соединение LISTEN потеряно, переподключение",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, l.maxBackoff)
	}
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения соединения: %w", err)
	}
	// Соединение с LISTEN изымается из пула и закрывается при выходе,
	// подписка не достаётся другим запросам.
	conn := pooled.Hijack()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("ошибка LISTEN: %w", err)
	}
	// Пока соединения не было, уведомления могли быть пропущены.
	l.cache.Purge()
	l.logger.Info("Подписка на изменения активна", slog.String("channel", Channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(n.Payload)
	}
}

// handle разбирает уведомление, инвалидирует кэш и публикует событие.
func (l *Listener) handle(payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil || e.Table == "" {
		l.logger.Warn("Некорректное уведомление", slog.String("payload", payload))
		return
	}

	removed := l.cache.InvalidateTables(e.Table)
	l.logger.Debug("Изменение данных",
		slog.String("table", e.Table),
		slog.String("op", e.Op),
		slog.Int64("id", e.ID),
		slog.Int("invalidated", removed),
	)
	l.hub.Publish(e)
}
