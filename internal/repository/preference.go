package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// PreferenceRepository — пользовательские настройки интерфейса (user_preferences).
type PreferenceRepository interface {
	// Get возвращает настройку. Если не найдена — ErrNotFound.
	Get(ctx context.Context, userID, key string) (*model.Preference, error)
	// List возвращает все настройки пользователя.
	List(ctx context.Context, userID string) ([]*model.Preference, error)
	// Put записывает значение и увеличивает версию.
	// expectedVersion == nil — безусловная запись; 0 — только создание;
	// иначе запись выполняется, если текущая версия совпадает (иначе ErrConflict).
	Put(ctx context.Context, userID, key string, value json.RawMessage, expectedVersion *int64) (*model.Preference, error)
	// Delete удаляет настройку.
	Delete(ctx context.Context, userID, key string) error
}

type preferenceRepo struct {
	db DBTX
}

// NewPreferenceRepository создаёт репозиторий пользовательских настроек.
func NewPreferenceRepository(db DBTX) PreferenceRepository {
	return &preferenceRepo{db: db}
}

const prefColumns = `user_id, key, value, version, updated_at`

func scanPreference(row pgx.Row) (*model.Preference, error) {
	p := &model.Preference{}
	var raw []byte
	if err := row.Scan(&p.UserID, &p.Key, &raw, &p.Version, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Value = json.RawMessage(raw)
	return p, nil
}

func (r *preferenceRepo) Get(ctx context.Context, userID, key string) (*model.Preference, error) {
	p, err := scanPreference(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+prefColumns+` FROM user_preferences WHERE user_id = $1 AND key = $2`, userID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения настройки %s: %w", key, err)
	}
	return p, nil
}

func (r *preferenceRepo) List(ctx context.Context, userID string) ([]*model.Preference, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+prefColumns+` FROM user_preferences WHERE user_id = $1 ORDER BY key`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	defer rows.Close()

	var result []*model.Preference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования настройки: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *preferenceRepo) Put(ctx context.Context, userID, key string, value json.RawMessage, expectedVersion *int64) (*model.Preference, error) {
	var query string
	args := []any{userID, key, []byte(value)}

	switch {
	case expectedVersion == nil:
		query = `
			INSERT INTO user_preferences (user_id, key, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, key) DO UPDATE SET
				value = EXCLUDED.value,
				version = user_preferences.version + 1,
				updated_at = NOW()
			RETURNING ` + prefColumns
	case *expectedVersion == 0:
		query = `
			INSERT INTO user_preferences (user_id, key, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, key) DO NOTHING
			RETURNING ` + prefColumns
	default:
		query = `
			UPDATE user_preferences
			SET value = $3, version = version + 1, updated_at = NOW()
			WHERE user_id = $1 AND key = $2 AND version = $4
			RETURNING ` + prefColumns
		args = append(args, *expectedVersion)
	}

	p, err := scanPreference(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: настройка %s изменена другим сеансом", ErrConflict, key)
		}
		return nil, fmt.Errorf("ошибка сохранения настройки %s: %w", key, err)
	}
	return p, nil
}

func (r *preferenceRepo) Delete(ctx context.Context, userID, key string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`DELETE FROM user_preferences WHERE user_id = $1 AND key = $2`, userID, key)
	if err != nil {
		return fmt.Errorf("ошибка удаления настройки %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
