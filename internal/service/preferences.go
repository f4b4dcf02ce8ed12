// preferences.go — пользовательские настройки интерфейса.
// Хранятся на сервере по пользователю; изменения рассылаются другим
// сеансам того же пользователя через ленту изменений.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
)

// Ключи настроек с известной формой значения.
const (
	// KeyStructureSelection — выбор проекта/корпуса/секции на странице структуры.
	KeyStructureSelection = "structurePageSelection"
	KeyClaimsHideClosed   = "claimsHideClosed"
	KeyDefectsHideClosed  = "defectsHideClosed"
	KeyTicketsHideClosed  = "ticketsHideClosed"
	// KeyTicketsProject — последний выбранный проект фильтра обращений.
	KeyTicketsProject = "ticketsProject"
)

var preferenceKeyRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,100}$`)

// maxPreferenceSize — предельный размер значения настройки.
const maxPreferenceSize = 64 << 10

// preferenceShape — проверка формы значения и значение по умолчанию для
// отсутствующей или повреждённой настройки.
type preferenceShape struct {
	validate func(json.RawMessage) error
	fallback json.RawMessage
}

// decodeStrict разбирает значение целиком, без лишних полей и данных.
func decodeStrict(v json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("лишние данные после значения")
	}
	return nil
}

var boolShape = preferenceShape{
	validate: func(v json.RawMessage) error {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return errors.New("ожидается true или false")
		}
		var b bool
		return decodeStrict(v, &b)
	},
	fallback: json.RawMessage(`false`),
}

var preferenceShapes = map[string]preferenceShape{
	KeyStructureSelection: {
		validate: func(v json.RawMessage) error {
			var sel model.StructureSelection
			return decodeStrict(v, &sel)
		},
		fallback: json.RawMessage(`{}`),
	},
	KeyClaimsHideClosed:  boolShape,
	KeyDefectsHideClosed: boolShape,
	KeyTicketsHideClosed: boolShape,
	KeyTicketsProject: {
		// id проекта или null
		validate: func(v json.RawMessage) error {
			var id *int64
			return decodeStrict(v, &id)
		},
		fallback: json.RawMessage(`null`),
	},
}

// PreferenceService — настройки пользователя.
type PreferenceService struct {
	repo   repository.PreferenceRepository
	events Publisher
	logger *slog.Logger
}

// NewPreferenceService создаёт сервис настроек.
func NewPreferenceService(repo repository.PreferenceRepository, events Publisher, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{
		repo:   repo,
		events: events,
		logger: logger.With(slog.String("component", "preference_service")),
	}
}

func validKey(key string) error {
	if !preferenceKeyRe.MatchString(key) {
		return fmt.Errorf("%w: недопустимый ключ настройки %q", ErrValidation, key)
	}
	return nil
}

// Get возвращает настройку. Повреждённое значение не ошибка: отдаётся
// значение по умолчанию с текущей версией. Для известного ключа без
// сохранённого значения — значение по умолчанию с версией 0.
func (s *PreferenceService) Get(ctx context.Context, userID, key string) (*model.Preference, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	shape, known := preferenceShapes[key]
	p, err := s.repo.Get(ctx, userID, key)
	if err != nil {
		if known && errors.Is(err, repository.ErrNotFound) {
			return &model.Preference{UserID: userID, Key: key, Value: shape.fallback}, nil
		}
		return nil, translate(err, "настройка")
	}
	if known {
		if err := shape.validate(p.Value); err != nil {
			s.logger.Warn("Сохранённая настройка повреждена, используется значение по умолчанию",
				slog.String("user_id", userID),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			p.Value = shape.fallback
		}
	}
	return p, nil
}

// List возвращает все настройки пользователя.
func (s *PreferenceService) List(ctx context.Context, userID string) ([]*model.Preference, error) {
	return s.repo.List(ctx, userID)
}

// Put сохраняет настройку. expectedVersion: nil — безусловная запись,
// 0 — только создание, N — запись поверх версии N (иначе ErrConflict).
// origin — идентификатор сеанса-источника для рассылки.
func (s *PreferenceService) Put(ctx context.Context, userID, key string, value json.RawMessage, expectedVersion *int64, origin string) (*model.Preference, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	if len(value) > maxPreferenceSize {
		return nil, fmt.Errorf("%w: значение настройки больше %d байт", ErrValidation, maxPreferenceSize)
	}
	if !json.Valid(value) {
		return nil, fmt.Errorf("%w: значение настройки — не JSON", ErrValidation)
	}
	if shape, ok := preferenceShapes[key]; ok {
		if err := shape.validate(value); err != nil {
			return nil, fmt.Errorf("%w: некорректное значение %s: %v", ErrValidation, key, err)
		}
	}
	if expectedVersion != nil && *expectedVersion < 0 {
		return nil, fmt.Errorf("%w: версия не может быть отрицательной", ErrValidation)
	}

	p, err := s.repo.Put(ctx, userID, key, value, expectedVersion)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: настройка %s изменена в другом сеансе", ErrConflict, key)
		}
		return nil, err
	}

	s.events.Publish(realtime.Event{
		Table:   realtime.TablePreferences,
		Op:      "UPDATE",
		UserID:  userID,
		Key:     key,
		Version: p.Version,
		Origin:  origin,
	})
	return p, nil
}

// Delete удаляет настройку.
func (s *PreferenceService) Delete(ctx context.Context, userID, key string, origin string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, key); err != nil {
		return translate(err, "настройка")
	}
	s.events.Publish(realtime.Event{
		Table:  realtime.TablePreferences,
		Op:     "DELETE",
		UserID: userID,
		Key:    key,
		Origin: origin,
	})
	return nil
}
