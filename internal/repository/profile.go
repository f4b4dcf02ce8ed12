package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// ProfileRepository — профили пользователей и назначенные им проекты.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// Ensure создаёт профиль при первом входе. Существующий профиль не меняется.
	Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error)
	List(ctx context.Context) ([]*model.Profile, error)
	// Update меняет имя, роль и (если ProjectIDs != nil) назначенные проекты.
	// Вызывать внутри TxRunner.RunInTx.
	Update(ctx context.Context, id string, patch model.ProfilePatch) (*model.Profile, error)
	Delete(ctx context.Context, id string) error
	// Stats считает записи, за которые пользователь отвечает.
	Stats(ctx context.Context, id string) (*model.UserStats, error)
}

type profileRepo struct {
	db DBTX
}

// NewProfileRepository создаёт репозиторий профилей.
func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `p.id, p.email, p.name, p.role, p.created_at,
	COALESCE(ARRAY(SELECT project_id FROM profile_projects WHERE profile_id = p.id ORDER BY project_id), '{}')`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.CreatedAt, &p.ProjectIDs)
	return p, err
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(conn(ctx, r.db).QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}
	return p, nil
}

func (r *profileRepo) Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO profiles (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Email, p.Name, p.Role)
	if err != nil {
		return nil, writeError(err, "создания профиля", "email уже используется другим профилем")
	}
	return r.GetByID(ctx, p.ID)
}

func (r *profileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+profileColumns+` FROM profiles p ORDER BY p.name NULLS LAST, p.email`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения профилей: %w", err)
	}
	defer rows.Close()

	var result []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования профиля: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *profileRepo) Update(ctx context.Context, id string, patch model.ProfilePatch) (*model.Profile, error) {
	db := conn(ctx, r.db)

	var b updateBuilder
	setPtr(&b, "name", patch.Name)
	setPtr(&b, "role", patch.Role)
	if !b.empty() {
		query, args := b.build("profiles", id, "")
		tag, err := db.Exec(ctx, query, args...)
		if err != nil {
			return nil, writeError(err, "обновления профиля", "")
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}

	if patch.ProjectIDs != nil {
		if _, err := db.Exec(ctx, `DELETE FROM profile_projects WHERE profile_id = $1`, id); err != nil {
			return nil, fmt.Errorf("ошибка очистки проектов профиля: %w", err)
		}
		if len(patch.ProjectIDs) > 0 {
			_, err := db.Exec(ctx, `
				INSERT INTO profile_projects (profile_id, project_id)
				SELECT $1, unnest($2::bigint[])
				ON CONFLICT DO NOTHING`, id, patch.ProjectIDs)
			if err != nil {
				return nil, writeError(err, "назначения проектов", "")
			}
		}
	}
	return r.GetByID(ctx, id)
}

func (r *profileRepo) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return writeError(err, "удаления профиля", "")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) Stats(ctx context.Context, id string) (*model.UserStats, error) {
	s := &model.UserStats{}
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM tickets WHERE responsible_engineer_id = $1),
			(SELECT count(*) FROM claims WHERE responsible_engineer_id = $1),
			(SELECT count(*) FROM defects WHERE fixed_by = $1),
			(SELECT count(*) FROM court_cases WHERE lawyer_id = $1 OR responsible_engineer_id = $1),
			(SELECT count(*) FROM letters WHERE responsible_user_id = $1)`, id,
	).Scan(&s.Tickets, &s.Claims, &s.Defects, &s.CourtCases, &s.Letters)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики пользователя: %w", err)
	}
	return s, nil
}
