// handler.go — основной обработчик API GarantHUB.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/api/middleware"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

// maxJSONBody — предельный размер JSON-тела запроса.
const maxJSONBody = 1 << 20

// Services — сервисы, к которым обращаются обработчики.
type Services struct {
	Projects    *service.ProjectService
	Units       *service.UnitService
	Parties     *service.PartyService
	Statuses    *service.StatusService
	Tickets     *service.TicketService
	Defects     *service.DefectService
	Claims      *service.ClaimService
	CourtCases  *service.CourtCaseService
	Letters     *service.LetterService
	Attachments *service.AttachmentService
	Profiles    *service.ProfileService
	Permissions *service.PermissionService
	Preferences *service.PreferenceService
}

// APIHandler — обработчик API GarantHUB.
type APIHandler struct {
	health        *HealthHandler
	svc           Services
	hub           *realtime.Hub
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// maxUploadSize — предельный размер тела multipart-запроса.
func NewAPIHandler(health *HealthHandler, svc Services, hub *realtime.Hub, maxUploadSize int64, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:        health,
		svc:           svc,
		hub:           hub,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// listResponse — обёртка списков.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: len(items)}
}

// decodeJSON читает тело запроса в dst. Неизвестные поля игнорируются:
// применяются только поля, объявленные в dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if err == io.EOF {
			apierrors.ValidationError(w, "Пустое тело запроса")
			return false
		}
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// fail записывает ответ по ошибке сервиса.
func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	apierrors.FromService(w, h.logger, err)
}

// user возвращает пользователя запроса (после JWTAuth всегда не nil).
func user(r *http.Request) *middleware.User {
	return middleware.UserFromContext(r.Context())
}

// scope возвращает проекты, доступные пользователю.
func scope(r *http.Request) service.Scope {
	if u := user(r); u != nil {
		return u.Scope
	}
	return service.Scope{}
}

// pathID извлекает числовой параметр пути.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр %s: %q", name, raw))
		return 0, false
	}
	return id, true
}

// chiParam возвращает строковый параметр пути.
func chiParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// --- Разбор query-параметров ---

// queryInt64s читает список чисел: ?k=1&k=2 или ?k=1,2.
func queryInt64s(r *http.Request, key string) ([]int64, error) {
	var out []int64
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("некорректное значение %s: %q", key, part)
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// queryStrings читает список строк: ?k=a&k=b или ?k=a,b.
func queryStrings(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// queryInt64 читает необязательное число.
func queryInt64(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("некорректное значение %s: %q", key, raw)
	}
	return &n, nil
}

// queryString читает необязательную строку.
func queryString(r *http.Request, key string) *string {
	if !r.URL.Query().Has(key) {
		return nil
	}
	v := strings.TrimSpace(r.URL.Query().Get(key))
	return &v
}

// queryDate читает дату YYYY-MM-DD.
func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(openapi_types.DateFormat, raw)
	if err != nil {
		return nil, fmt.Errorf("некорректная дата %s: %q, ожидается ГГГГ-ММ-ДД", key, raw)
	}
	return &t, nil
}

// queryBool читает флаг: "1", "true".
func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// --- Даты в теле запроса ---

// dateTime переводит дату из JSON в time.Time (полночь UTC).
func dateTime(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// --- Загрузка файлов ---

// uploadFiles разбирает multipart-форму и возвращает файлы поля "files".
// Вызывающий должен вызвать cleanup после обработки.
func (h *APIHandler) uploadFiles(w http.ResponseWriter, r *http.Request) ([]model.UploadFile, func(), bool) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize*10)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return nil, nil, false
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	headers := r.MultipartForm.File["files"]
	files := make([]model.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, model.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadSeekCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}
	return files, cleanup, true
}
