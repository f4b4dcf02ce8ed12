package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

// testKeyID — идентификатор ключа для тестов.
const testKeyID = "test-key-gh"

const testIssuer = "https://idp.test/auth/v1"

// mockProfiles — мок ProfileResolver: профили по sub, запоминает Identity.
type mockProfiles struct {
	profiles map[string]*model.Profile
	last     service.Identity
	err      error
}

func (m *mockProfiles) Resolve(_ context.Context, id service.Identity) (*model.Profile, error) {
	m.last = id
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.profiles[id.Subject]; ok {
		return p, nil
	}
	return &model.Profile{ID: id.Subject, Email: id.Email, Role: rbac.RoleEngineer}, nil
}

// mockPermissions — права по умолчанию.
type mockPermissions struct{}

func (mockPermissions) Get(_ context.Context, role string) (*model.RolePermission, error) {
	p := rbac.DefaultPermissions()[role]
	return &p, nil
}

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestJWTAuth создаёт JWTAuth с JWKS из ключа key.
func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey, profiles *mockProfiles) *JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	if profiles == nil {
		profiles = &mockProfiles{}
	}
	return NewJWTAuthWithKeyfunc(kf, testIssuer, profiles, mockPermissions{}, testLogger())
}

// generateToken генерирует подписанный JWT с дополнительными claims.
func generateToken(t *testing.T, key *rsa.PrivateKey, sub string, extra map[string]any, expired bool) string {
	t.Helper()

	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}
	claims := jwt.MapClaims{
		"sub": sub,
		"iss": testIssuer,
		"exp": jwt.NewNumericDate(exp),
		"nbf": jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tokenStr
}

// TestJWTAuth_ValidToken — валидный токен, пользователь в контексте.
func TestJWTAuth_ValidToken(t *testing.T) {
	key := generateTestKey(t)
	profiles := &mockProfiles{profiles: map[string]*model.Profile{
		"user-123": {ID: "user-123", Email: "lawyer@test.com", Role: rbac.RoleLawyer},
	}}
	auth := newTestJWTAuth(t, key, profiles)

	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			t.Fatal("пользователь не найден в контексте")
		}
		if user.ID() != "user-123" {
			t.Errorf("ожидался id=user-123, получен %s", user.ID())
		}
		if user.Profile.Role != rbac.RoleLawyer {
			t.Errorf("ожидалась роль LAWYER, получена %s", user.Profile.Role)
		}
		if user.Scope != nil {
			t.Errorf("ожидался доступ ко всем проектам, получен %v", user.Scope)
		}
		if !user.Permissions.CanEdit(rbac.TableCourtCases) {
			t.Error("ожидалось право редактирования court_cases")
		}
		w.WriteHeader(http.StatusOK)
	}))

	tokenStr := generateToken(t, key, "user-123", map[string]any{
		"email":         "lawyer@test.com",
		"user_metadata": map[string]any{"name": "Юрист"},
	}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
	if profiles.last.Name != "Юрист" || profiles.last.Email != "lawyer@test.com" {
		t.Errorf("неожиданная Identity: %+v", profiles.last)
	}
}

// TestJWTAuth_RoleClaimsIgnored — роль из токена не даёт прав администратора.
func TestJWTAuth_RoleClaimsIgnored(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, &mockProfiles{})

	var role string
	handler := auth.Middleware()(RequireRole(rbac.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	})))
	roleHandler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = UserFromContext(r.Context()).Profile.Role
	}))

	tokenStr := generateToken(t, key, "new-user", map[string]any{
		"role":          "admin",
		"user_metadata": map[string]any{"role": "admin"},
	}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}

	roleHandler.ServeHTTP(httptest.NewRecorder(), req)
	if role != rbac.RoleEngineer {
		t.Errorf("ожидалась роль ENGINEER, получена %s", role)
	}
}

// TestJWTAuth_AssignedProjects — роль с ограничением видит только свои проекты.
func TestJWTAuth_AssignedProjects(t *testing.T) {
	key := generateTestKey(t)

	tests := []struct {
		name     string
		projects []int64
		want     service.Scope
	}{
		{"с проектами", []int64{3, 7}, service.Scope{3, 7}},
		{"без проектов", nil, service.Scope{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &mockProfiles{profiles: map[string]*model.Profile{
				"c-1": {ID: "c-1", Role: rbac.RoleContractor, ProjectIDs: tt.projects},
			}}
			auth := newTestJWTAuth(t, key, profiles)

			var got service.Scope
			handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = UserFromContext(r.Context()).Scope
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/defects", nil)
			req.Header.Set("Authorization", "Bearer "+generateToken(t, key, "c-1", nil, false))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got == nil {
				t.Fatal("ожидалось ограничение проектов, получен nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ожидалось %v, получено %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ожидалось %v, получено %v", tt.want, got)
				}
			}
		})
	}
}

// TestJWTAuth_Rejected — токены и заголовки, которые не проходят проверку.
func TestJWTAuth_Rejected(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	auth := newTestJWTAuth(t, key, nil)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"нет заголовка", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"без Bearer", "token123"},
		{"пустой Bearer", "Bearer "},
		{"просрочен", "Bearer " + generateToken(t, key, "u", nil, true)},
		{"чужой ключ", "Bearer " + generateToken(t, otherKey, "u", nil, false)},
		{"чужой issuer", "Bearer " + generateToken(t, key, "u", map[string]any{"iss": "https://evil"}, false)},
		{"без sub", "Bearer " + generateToken(t, key, "", nil, false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
		})
	}
}

// TestJWTAuth_WebSocketQueryToken — токен в параметре только для WebSocket.
func TestJWTAuth_WebSocketQueryToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, nil)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	token := generateToken(t, key, "user-1", nil, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me?access_token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401 без Upgrade, получен %d", rec.Code)
	}
}

// TestJWTAuth_ProfileError — ошибка загрузки профиля даёт 500.
func TestJWTAuth_ProfileError(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, &mockProfiles{err: errors.New("БД недоступна")})
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken(t, key, "u", nil, false))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("ожидался статус 500, получен %d", rec.Code)
	}
}

func userWithRole(role string) *User {
	p := rbac.DefaultPermissions()[role]
	return &User{Profile: &model.Profile{ID: "u-" + role, Role: role}, Permissions: &p}
}

// TestRequireRole — проверка ролей.
func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		user       *User
		wantStatus int
	}{
		{"администратор", userWithRole(rbac.RoleAdmin), http.StatusOK},
		{"инженер", userWithRole(rbac.RoleEngineer), http.StatusForbidden},
		{"без пользователя", nil, http.StatusUnauthorized},
	}

	handler := RequireRole(rbac.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("ожидался статус %d, получен %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

// TestRequireWrite — права на изменение и удаление по методу запроса.
func TestRequireWrite(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		method     string
		wantStatus int
	}{
		{"инженер читает", rbac.RoleEngineer, http.MethodGet, http.StatusOK},
		{"инженер создаёт", rbac.RoleEngineer, http.MethodPost, http.StatusOK},
		{"инженер не удаляет претензии", rbac.RoleEngineer, http.MethodDelete, http.StatusForbidden},
		{"юрист не удаляет претензии", rbac.RoleLawyer, http.MethodDelete, http.StatusForbidden},
		{"подрядчик не меняет", rbac.RoleContractor, http.MethodPatch, http.StatusForbidden},
		{"администратор удаляет", rbac.RoleAdmin, http.MethodDelete, http.StatusOK},
	}

	handler := RequireWrite(rbac.TableClaims)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/claims/1", nil)
			req = req.WithContext(WithUser(req.Context(), userWithRole(tt.role)))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("ожидался статус %d, получен %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
