package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
)

func TestFromService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"валидация", fmt.Errorf("%w: поле name обязательно", service.ErrValidation), http.StatusBadRequest, CodeValidationError},
		{"не найдено", fmt.Errorf("%w: проект", service.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"конфликт", fmt.Errorf("%w: дубликат", service.ErrConflict), http.StatusConflict, CodeConflict},
		{"нет прав", service.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"bucket", fmt.Errorf("%w: bucket attachments", service.ErrStorageMisconfigured), http.StatusBadGateway, CodeStorageMisconfigured},
		{"прочее", fmt.Errorf("соединение с БД разорвано"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromService(rec, logger, tt.err)

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.wantCode)
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("невалидный JSON ответа: %v", err)
			}
			if body.Error.Code != tt.wantBody {
				t.Errorf("code = %q, ожидался %q", body.Error.Code, tt.wantBody)
			}
		})
	}
}

func TestFromService_InternalHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FromService(rec, slog.New(slog.NewTextHandler(io.Discard, nil)), fmt.Errorf("pq: password authentication failed"))

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("невалидный JSON ответа: %v", err)
	}
	if body.Error.Message != "Внутренняя ошибка сервера" {
		t.Errorf("message = %q: детали внутренней ошибки не должны уходить клиенту", body.Error.Message)
	}
}
