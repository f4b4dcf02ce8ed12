package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupListenerPool запускает PostgreSQL и возвращает пул из одного соединения.
func setupListenerPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("garanthub_test"),
		postgres.WithUsername("garanthub"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Не удалось получить строку подключения: %v", err)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("Ошибка разбора DSN: %v", err)
	}
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("Ошибка создания пула: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// signalInvalidator сообщает о вызовах через каналы.
type signalInvalidator struct {
	purged chan struct{}
	tables chan string
}

func (s *signalInvalidator) InvalidateTables(tables ...string) int {
	for _, t := range tables {
		s.tables <- t
	}
	return len(tables)
}

func (s *signalInvalidator) Purge() { s.purged <- struct{}{} }

func TestListener_DedicatedConnection(t *testing.T) {
	pool := setupListenerPool(t)

	h := NewHub(4, testLogger())
	inv := &signalInvalidator{purged: make(chan struct{}, 4), tables: make(chan string, 4)}
	l := NewListener(pool, h, inv, testLogger())
	sub := h.Subscribe("u", Filter{Table: "defects"})
	defer h.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	// Повторный вызов безопасен: отмена идемпотентна, done закрыт.
	stop := func() {
		cancel()
		<-done
	}
	defer stop()

	select {
	case <-inv.purged:
	case <-time.After(10 * time.Second):
		t.Fatal("слушатель не подписался на канал")
	}

	// Единственное соединение пула свободно: у слушателя своё.
	qctx, qcancel := context.WithTimeout(ctx, 5*time.Second)
	defer qcancel()
	var channels int
	require.NoError(t, pool.QueryRow(qctx, "SELECT count(*) FROM pg_listening_channels()").Scan(&channels))
	assert.Zero(t, channels, "соединение пула не подписано на канал")

	_, err := pool.Exec(qctx, "SELECT pg_notify($1, $2)", Channel,
		`{"table":"defects","op":"INSERT","id":1,"project_id":2}`)
	require.NoError(t, err)

	select {
	case table := <-inv.tables:
		assert.Equal(t, "defects", table)
	case <-time.After(5 * time.Second):
		t.Fatal("уведомление не получено")
	}
	select {
	case e := <-sub.Events():
		assert.Equal(t, int64(1), e.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("событие не опубликовано")
	}

	stop()

	require.NoError(t, pool.QueryRow(context.Background(), "SELECT count(*) FROM pg_listening_channels()").Scan(&channels))
	assert.Zero(t, channels, "после остановки пул не подписан на канал")
}
