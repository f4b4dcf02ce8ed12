// Пакет cache — кэш результатов запросов на чтение.
// Обёртка над hashicorp/golang-lru/v2/expirable с инвалидацией по префиксу
// ключа и объединением одновременных одинаковых загрузок.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_cache_hits_total",
		Help: "Общее количество попаданий в кэш запросов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_cache_misses_total",
		Help: "Общее количество промахов кэша запросов.",
	})
	cacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_cache_invalidated_keys_total",
		Help: "Количество ключей, удалённых инвалидацией по префиксу.",
	})
)

// QueryCache — LRU-кэш с TTL для результатов чтения.
type QueryCache struct {
	lru   *expirable.LRU[string, any]
	group singleflight.Group

	// generation растёт при каждой инвалидации: результат загрузки,
	// начатой до инвалидации, в кэш не попадает.
	mu         sync.Mutex
	generation uint64
}

// New создаёт кэш на maxSize записей с временем жизни ttl.
func New(maxSize int, ttl time.Duration) *QueryCache {
	return &QueryCache{
		lru: expirable.NewLRU[string, any](maxSize, nil, ttl),
	}
}

// Get возвращает значение по ключу.
func (c *QueryCache) Get(key string) (any, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		cacheHitsTotal.Inc()
	} else {
		cacheMissesTotal.Inc()
	}
	return v, ok
}

// Set сохраняет значение.
func (c *QueryCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Len возвращает количество записей.
func (c *QueryCache) Len() int {
	return c.lru.Len()
}

// InvalidatePrefix удаляет все ключи, начинающиеся с любого из префиксов.
func (c *QueryCache) InvalidatePrefix(prefixes ...string) int {
	if len(prefixes) == 0 {
		return 0
	}

	c.mu.Lock()
	c.generation++
	c.mu.Unlock()

	removed := 0
	for _, key := range c.lru.Keys() {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				if c.lru.Remove(key) {
					removed++
				}
				break
			}
		}
	}
	cacheInvalidationsTotal.Add(float64(removed))
	return removed
}

// Purge очищает кэш целиком.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	c.lru.Purge()
}

func (c *QueryCache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// GetOrLoad возвращает значение из кэша либо загружает его.
// Одновременные вызовы с одним ключом выполняют loader один раз.
// Ошибки не кэшируются.
func GetOrLoad[T any](ctx context.Context, c *QueryCache, key string, loader func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.currentGeneration()
		// Загрузка не должна прерываться отменой контекста первого вызвавшего:
		// её результат ждут и другие запросы.
		val, err := loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if c.currentGeneration() == gen {
			c.Set(key, val)
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
