// auth.go — JWT middleware аутентификации GarantHUB.
// Токены выдаёт внешний IdP, подпись проверяется по его JWKS.
// По sub токена загружается (или создаётся при первом входе) профиль,
// по роли профиля — права. Всё вместе кладётся в контекст запроса.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyUser — текущий пользователь в контексте запроса.
	ContextKeyUser contextKey = "gh_user"
)

// User — аутентифицированный пользователь запроса.
type User struct {
	Profile     *model.Profile
	Permissions *model.RolePermission
	// Scope — доступные проекты; nil — все
	Scope service.Scope
}

// ID возвращает идентификатор пользователя (sub токена).
func (u *User) ID() string {
	return u.Profile.ID
}

// HasAnyRole проверяет, совпадает ли роль пользователя с одной из указанных.
func (u *User) HasAnyRole(roles ...string) bool {
	return slices.Contains(roles, u.Profile.Role)
}

// ProfileResolver — загрузка профиля по данным токена.
// Реализуется service.ProfileService.
type ProfileResolver interface {
	Resolve(ctx context.Context, id service.Identity) (*model.Profile, error)
}

// PermissionProvider — права роли. Реализуется service.PermissionService.
type PermissionProvider interface {
	Get(ctx context.Context, role string) (*model.RolePermission, error)
}

// idpClaims — claims токена IdP.
type idpClaims struct {
	jwt.RegisteredClaims
	Email             string        `json:"email"`
	Name              string        `json:"name"`
	PreferredUsername string        `json:"preferred_username"`
	UserMetadata      *userMetadata `json:"user_metadata,omitempty"`
}

// userMetadata — атрибуты, которые пользователь задаёт сам при регистрации.
// Роль отсюда не берётся.
type userMetadata struct {
	Name string `json:"name"`
}

// JWTAuth — middleware JWT-аутентификации через JWKS.
type JWTAuth struct {
	jwks        keyfunc.Keyfunc
	profiles    ProfileResolver
	permissions PermissionProvider
	issuer      string
	jwtLeeway   time.Duration
	logger      *slog.Logger
}

// NewJWTAuth создаёт JWT middleware с JWKS из IdP.
// jwksRefreshInterval — интервал обновления ключей, jwtLeeway — допустимое
// отклонение часов при проверке exp/nbf.
func NewJWTAuth(
	jwksURL string,
	issuer string,
	profiles ProfileResolver,
	permissions PermissionProvider,
	jwksRefreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: 10 * time.Second},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	a := NewJWTAuthWithKeyfunc(k, issuer, profiles, permissions, logger)
	a.jwtLeeway = jwtLeeway
	return a, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки JWKS.
func NewJWTAuthWithKeyfunc(
	kf keyfunc.Keyfunc,
	issuer string,
	profiles ProfileResolver,
	permissions PermissionProvider,
	logger *slog.Logger,
) *JWTAuth {
	return &JWTAuth{
		jwks:        kf,
		profiles:    profiles,
		permissions: permissions,
		issuer:      issuer,
		logger:      logger.With(slog.String("component", "jwt_auth")),
	}
}

// bearerToken извлекает токен из Authorization. Для подключения WebSocket
// браузер не может передать заголовок, поэтому там допускается
// параметр access_token.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			if t := r.URL.Query().Get("access_token"); t != "" {
				return t, ""
			}
		}
		return "", "Отсутствует заголовок Authorization"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "Неверный формат Authorization: ожидается Bearer <token>"
	}
	if parts[1] == "" {
		return "", "Пустой Bearer token"
	}
	return parts[1], ""
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, problem := bearerToken(r)
			if problem != "" {
				apierrors.Unauthorized(w, problem)
				return
			}

			raw := &idpClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256", "ES256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				j.logger.Debug("JWT валидация не пройдена",
					slog.Any("error", err),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			subject, err := raw.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			user, err := j.buildUser(r.Context(), subject, raw)
			if err != nil {
				j.logger.Error("Ошибка загрузки профиля пользователя",
					slog.String("user_id", subject),
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, "Не удалось загрузить профиль пользователя")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// buildUser загружает профиль и права, вычисляет доступные проекты.
func (j *JWTAuth) buildUser(ctx context.Context, subject string, raw *idpClaims) (*User, error) {
	id := service.Identity{
		Subject: subject,
		Email:   raw.Email,
		Name:    raw.Name,
	}
	if id.Name == "" {
		id.Name = raw.PreferredUsername
	}
	if id.Name == "" && raw.UserMetadata != nil {
		id.Name = raw.UserMetadata.Name
	}

	profile, err := j.profiles.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := j.permissions.Get(ctx, profile.Role)
	if err != nil {
		return nil, err
	}

	user := &User{Profile: profile, Permissions: perms}
	if perms.OnlyAssignedProject {
		// Пустой, но не nil: без назначенных проектов не видно ничего
		user.Scope = append(service.Scope{}, profile.ProjectIDs...)
	}
	return user, nil
}

// --- Context helpers ---

// UserFromContext извлекает пользователя из контекста запроса.
// Возвращает nil, если пользователь не найден.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ContextKeyUser).(*User)
	return u
}

// WithUser кладёт пользователя в контекст (для тестов обработчиков).
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, u)
}

// --- ReadinessChecker для IdP ---

// JWKSReadinessChecker — проверка доступности IdP через JWKS.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности IdP.
func NewJWKSReadinessChecker(jwksURL string, timeout time.Duration) *JWKSReadinessChecker {
	return &JWKSReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint IdP.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}
	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
