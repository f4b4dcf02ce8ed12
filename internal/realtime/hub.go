// Пакет realtime — лента изменений данных.
//
// Listener слушает канал PostgreSQL gh_changes (NOTIFY из триггеров),
// инвалидирует кэш и публикует события в Hub. Hub рассылает события
// подписчикам WebSocket с учётом фильтра таблицы и колонки.
package realtime

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TablePreferences — таблица пользовательских настроек. События по ней
// доставляются только сеансам владельца.
const TablePreferences = "user_preferences"

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_realtime_events_total",
		Help: "Количество опубликованных событий изменений по таблицам.",
	}, []string{"table"})
	subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gh_realtime_subscribers",
		Help: "Текущее количество подписчиков ленты изменений.",
	})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_realtime_dropped_subscribers_total",
		Help: "Подписчики, отключённые из-за переполнения буфера.",
	})
)

// Event — изменение записи.
type Event struct {
	Table     string `json:"table"`
	Op        string `json:"op"`
	ID        int64  `json:"id,omitempty"`
	ProjectID *int64 `json:"project_id,omitempty"`
	// UserID и Key — только для событий пользовательских настроек
	UserID string `json:"-"`
	Key    string `json:"key,omitempty"`
	// Version — версия настройки после записи
	Version int64 `json:"version,omitempty"`
	// Origin — идентификатор сеанса-источника (вкладки), если известен
	Origin string `json:"origin,omitempty"`
}

// Filter — условие подписки. Пустая таблица — все таблицы.
// Column/Value — необязательное равенство: project_id или id.
type Filter struct {
	Table  string
	Column string
	Value  int64
}

// ParseFilter разбирает выражение вида "project_id=eq.5".
// Пустая строка — без фильтра по колонке.
func ParseFilter(table, expr string) (Filter, error) {
	f := Filter{Table: table}
	if expr == "" {
		return f, nil
	}

	column, rest, ok := strings.Cut(expr, "=")
	if !ok {
		return f, fmt.Errorf("некорректный фильтр %q: ожидается колонка=eq.значение", expr)
	}
	value, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return f, fmt.Errorf("некорректный фильтр %q: поддерживается только eq", expr)
	}
	if column != "project_id" && column != "id" {
		return f, fmt.Errorf("фильтр по колонке %q не поддерживается", column)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return f, fmt.Errorf("некорректное значение фильтра %q", value)
	}

	f.Column = column
	f.Value = n
	return f, nil
}

// Match проверяет событие фильтром.
func (f Filter) Match(e Event) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	switch f.Column {
	case "project_id":
		return e.ProjectID != nil && *e.ProjectID == f.Value
	case "id":
		return e.ID == f.Value
	}
	return true
}

// Subscriber — подписка одного соединения.
type Subscriber struct {
	userID string
	filter Filter
	ch     chan Event
	closed bool
}

// Events возвращает канал событий. Закрывается при отписке или переполнении.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Hub — реестр подписчиков. Безопасен для конкурентного использования.
type Hub struct {
	mu         sync.Mutex
	subs       map[*Subscriber]struct{}
	bufferSize int
	logger     *slog.Logger
}

// NewHub создаёт Hub; bufferSize — ёмкость очереди одного подписчика.
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		subs:       make(map[*Subscriber]struct{}),
		bufferSize: bufferSize,
		logger:     logger.With(slog.String("component", "realtime_hub")),
	}
}

// Subscribe регистрирует подписчика.
func (h *Hub) Subscribe(userID string, f Filter) *Subscriber {
	s := &Subscriber{userID: userID, filter: f, ch: make(chan Event, h.bufferSize)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	subscribersGauge.Inc()
	return s
}

// Unsubscribe удаляет подписчика и закрывает его канал. Повторный вызов безопасен.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *Subscriber) {
	if s.closed {
		return
	}
	s.closed = true
	delete(h.subs, s)
	close(s.ch)
	subscribersGauge.Dec()
}

// Publish рассылает событие. Не блокируется: подписчик с заполненной
// очередью отключается.
func (h *Hub) Publish(e Event) {
	eventsTotal.WithLabelValues(e.Table).Inc()

	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.filter.Match(e) {
			continue
		}
		if e.Table == TablePreferences && e.UserID != s.userID {
			continue
		}
		select {
		case s.ch <- e:
		default:
			h.logger.Warn("Подписчик не успевает читать события, отключён",
				slog.String("user_id", s.userID),
				slog.String("table", s.filter.Table),
			)
			droppedTotal.Inc()
			h.removeLocked(s)
		}
	}
}

// Len возвращает количество подписчиков.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
