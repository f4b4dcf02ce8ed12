package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svarovsky7/GarantHUB-sub002/internal/api/middleware"
	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Фейковые репозитории ---

type fakeProjects struct {
	mu     sync.Mutex
	items  map[int64]*model.Project
	nextID int64
	// used — проекты, на которые ссылаются другие записи
	used map[int64]bool
}

func newFakeProjects(names ...string) *fakeProjects {
	f := &fakeProjects{items: map[int64]*model.Project{}, used: map[int64]bool{}}
	for _, n := range names {
		f.nextID++
		f.items[f.nextID] = &model.Project{ID: f.nextID, Name: n}
	}
	return f
}

func (f *fakeProjects) Create(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Name == p.Name {
			return repository.ErrConflict
		}
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeProjects) GetByID(_ context.Context, id int64) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) List(_ context.Context, ids []int64) ([]*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Project
	for id, p := range f.items {
		if ids == nil || slices.Contains(ids, id) {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.Project) int { return int(a.ID - b.ID) })
	return out, nil
}

func (f *fakeProjects) Update(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeProjects) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.used[id] {
		return repository.ErrForeignKey
	}
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type prefKey struct{ user, key string }

type fakePrefs struct {
	mu    sync.Mutex
	items map[prefKey]*model.Preference
}

func (f *fakePrefs) Get(_ context.Context, userID, key string) (*model.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[prefKey{userID, key}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePrefs) List(_ context.Context, userID string) ([]*model.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Preference
	for k, p := range f.items {
		if k.user == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePrefs) Put(_ context.Context, userID, key string, value json.RawMessage, expectedVersion *int64) (*model.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := prefKey{userID, key}
	var current int64
	if p, ok := f.items[k]; ok {
		current = p.Version
	}
	if expectedVersion != nil && *expectedVersion != current {
		return nil, repository.ErrConflict
	}
	p := &model.Preference{UserID: userID, Key: key, Value: value, Version: current + 1, UpdatedAt: time.Now()}
	f.items[k] = p
	cp := *p
	return &cp, nil
}

func (f *fakePrefs) Delete(_ context.Context, userID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := prefKey{userID, key}
	if _, ok := f.items[k]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, k)
	return nil
}

// --- Окружение ---

type testAPI struct {
	projects *fakeProjects
	prefs    *fakePrefs
	hub      *realtime.Hub
	router   chi.Router
}

func newTestAPI(t *testing.T, u *middleware.User) *testAPI {
	t.Helper()
	logger := testLogger()
	qc := cache.New(100, time.Minute)
	api := &testAPI{
		projects: newFakeProjects("ЖК Север", "ЖК Юг"),
		prefs:    &fakePrefs{items: map[prefKey]*model.Preference{}},
		hub:      realtime.NewHub(8, logger),
	}

	h := NewAPIHandler(NewHealthHandler(nil, nil, nil), Services{
		Projects:    service.NewProjectService(api.projects, qc, logger),
		Preferences: service.NewPreferenceService(api.prefs, api.hub, logger),
	}, api.hub, 1<<20, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), u)))
		})
	})
	r.Route("/api/v1", h.Routes)
	api.router = r
	return api
}

func userWithRole(role string, projectIDs ...int64) *middleware.User {
	perms := rbac.DefaultPermissions()[role]
	u := &middleware.User{
		Profile:     &model.Profile{ID: "u-" + role, Email: role + "@example.com", Role: role, ProjectIDs: projectIDs},
		Permissions: &perms,
	}
	if perms.OnlyAssignedProject {
		u.Scope = append(service.Scope{}, projectIDs...)
	}
	return u
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

// --- Проекты ---

func TestProjects_CRUD(t *testing.T) {
	api := newTestAPI(t, userWithRole(rbac.RoleAdmin))

	rec := api.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []model.Project `json:"items"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	rec = api.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "  ЖК Запад  ", "unknown": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ЖК Запад", created.Name)

	// Список после создания не берётся из устаревшего кэша
	rec = api.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)

	rec = api.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "ЖК Юг"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, rec))

	rec = api.do(t, http.MethodPatch, "/api/v1/projects/1", map[string]any{"description": "Первая очередь"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "ЖК Север", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Первая очередь", *updated.Description)

	api.projects.used[2] = true
	rec = api.do(t, http.MethodDelete, "/api/v1/projects/2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/projects/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/projects/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjects_Validation(t *testing.T) {
	api := newTestAPI(t, userWithRole(rbac.RoleAdmin))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"пустое имя", http.MethodPost, "/api/v1/projects", map[string]any{"name": "   "}},
		{"без имени", http.MethodPost, "/api/v1/projects", map[string]any{}},
		{"нечисловой id", http.MethodGet, "/api/v1/projects/abc", nil},
		{"нулевой id", http.MethodGet, "/api/v1/projects/0", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
		})
	}
}

func TestProjects_Permissions(t *testing.T) {
	api := newTestAPI(t, userWithRole(rbac.RoleEngineer))

	rec := api.do(t, http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "ЖК Восток"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProjects_AssignedScope(t *testing.T) {
	api := newTestAPI(t, userWithRole(rbac.RoleContractor, 2))

	rec := api.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []model.Project `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "ЖК Юг", list.Items[0].Name)

	// Чужой проект неотличим от несуществующего
	rec = api.do(t, http.MethodGet, "/api/v1/projects/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Настройки ---

func TestPreferences_VersionedWrite(t *testing.T) {
	u := userWithRole(rbac.RoleEngineer)
	api := newTestAPI(t, u)
	sub := api.hub.Subscribe(u.ID(), realtime.Filter{Table: realtime.TablePreferences})
	defer api.hub.Unsubscribe(sub)

	path := "/api/v1/preferences/" + service.KeyStructureSelection
	rec := api.do(t, http.MethodPut, path, map[string]any{
		"value":            map[string]any{"projectId": 1, "building": "1"},
		"expected_version": 0,
		"origin":           "tab-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p model.Preference
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, int64(1), p.Version)

	select {
	case e := <-sub.Events():
		assert.Equal(t, "tab-1", e.Origin)
		assert.Equal(t, int64(1), e.Version)
	case <-time.After(time.Second):
		t.Fatal("событие изменения настройки не получено")
	}

	// Повторная запись со старой версией — конфликт
	rec = api.do(t, http.MethodPut, path, map[string]any{
		"value":            map[string]any{"projectId": 2},
		"expected_version": 0,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Значение неверной формы отклоняется
	rec = api.do(t, http.MethodPut, path, map[string]any{"value": map[string]any{"project": 2}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.JSONEq(t, `{"projectId":1,"building":"1"}`, string(p.Value))

	rec = api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, "после удаления — значение по умолчанию")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.JSONEq(t, `{}`, string(p.Value))
	assert.Equal(t, int64(0), p.Version)

	rec = api.do(t, http.MethodGet, "/api/v1/preferences/theme", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Лента изменений ---

func TestRealtime_AssignedScopeRequiresProjectFilter(t *testing.T) {
	api := newTestAPI(t, userWithRole(rbac.RoleContractor, 2))

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"без фильтра", "?table=defects", http.StatusForbidden},
		{"чужой проект", "?table=defects&filter=project_id=eq.1", http.StatusForbidden},
		{"фильтр по id", "?table=defects&filter=id=eq.2", http.StatusForbidden},
		{"некорректный фильтр", "?table=defects&filter=project_id=gt.1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, "/api/v1/realtime"+tt.query, nil)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

// --- Разбор параметров ---

func TestQueryInt64s(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?project_id=1,2&project_id=3&project_id=", nil)
	ids, err := queryInt64s(req, "project_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	ids, err = queryInt64s(req, "project_id")
	require.NoError(t, err)
	assert.Nil(t, ids, "отсутствующий параметр — без ограничения")

	req = httptest.NewRequest(http.MethodGet, "/?project_id=1,x", nil)
	_, err = queryInt64s(req, "project_id")
	assert.Error(t, err)
}

func TestParseCourtCaseFilters(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/?project_id=1&lawyer_id=a,b&plaintiff=%20Иванов%20&date_from=2024-01-31&hide_closed=true", nil)
	f, err := parseCourtCaseFilters(req)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, f.ProjectIDs)
	assert.Equal(t, []string{"a", "b"}, f.LawyerIDs)
	assert.Equal(t, "Иванов", f.Plaintiff)
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *f.DateFrom)
	assert.Nil(t, f.DateTo)
	assert.True(t, f.HideClosed)

	req = httptest.NewRequest(http.MethodGet, "/?date_to=31.01.2024", nil)
	_, err = parseCourtCaseFilters(req)
	assert.Error(t, err)
}

// --- Health ---

type stubChecker struct{ status string }

func (s stubChecker) CheckReady() (string, string) { return s.status, "" }

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		pg, st, kc ReadinessChecker
		wantStatus string
		wantCode   int
	}{
		{"все ok", stubChecker{"ok"}, stubChecker{"ok"}, stubChecker{"ok"}, "ok", http.StatusOK},
		{"IdP недоступен", stubChecker{"ok"}, stubChecker{"ok"}, stubChecker{"fail"}, "degraded", http.StatusOK},
		{"без IdP", stubChecker{"ok"}, stubChecker{"ok"}, nil, "ok", http.StatusOK},
		{"хранилище недоступно", stubChecker{"ok"}, stubChecker{"fail"}, stubChecker{"ok"}, "fail", http.StatusServiceUnavailable},
		{"нет PostgreSQL", nil, stubChecker{"ok"}, nil, "fail", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.st, tt.kc)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var body healthReadyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, serviceName, body.Service)
		})
	}
}
