package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore — хранилище в памяти. Безопасно для конкурентного использования.
type MemoryStore struct {
	bucket  string
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryStore) Bucket() string {
	return m.bucket
}

func (m *MemoryStore) Upload(_ context.Context, key, contentType string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("ошибка чтения содержимого: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("размер не совпадает: ожидалось %d байт, получено %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	observe("upload", nil)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	observe("remove", nil)
	return nil
}

func (m *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return "memory://" + m.bucket + "/" + key
}

func (m *MemoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s?expires=%d", m.PublicURL(key), expires), nil
}

func (m *MemoryStore) Check(context.Context) error {
	return nil
}

// Keys возвращает отсортированный список ключей.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
