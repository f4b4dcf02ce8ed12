package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// --- Физлица ---

// PersonRepository — физические лица.
type PersonRepository interface {
	Create(ctx context.Context, p *model.Person) error
	GetByID(ctx context.Context, id int64) (*model.Person, error)
	List(ctx context.Context) ([]*model.Person, error)
	Update(ctx context.Context, id int64, patch model.PersonPatch) (*model.Person, error)
	Delete(ctx context.Context, id int64) error
	// FindByPassport ищет физлицо по паспорту. Нет записи — nil, nil.
	// excludeID исключает запись из поиска (проверка при изменении).
	FindByPassport(ctx context.Context, series, number string, excludeID int64) (*model.Person, error)
}

type personRepo struct {
	db DBTX
}

// NewPersonRepository создаёт репозиторий физлиц.
func NewPersonRepository(db DBTX) PersonRepository {
	return &personRepo{db: db}
}

const personColumns = `id, full_name, passport_series, passport_number, phone, email, description, created_at`

const errPassportTaken = "физлицо с таким паспортом уже существует"

func scanPerson(row pgx.Row) (*model.Person, error) {
	p := &model.Person{}
	err := row.Scan(&p.ID, &p.FullName, &p.PassportSeries, &p.PassportNumber,
		&p.Phone, &p.Email, &p.Description, &p.CreatedAt)
	return p, err
}

func (r *personRepo) Create(ctx context.Context, p *model.Person) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO persons (full_name, passport_series, passport_number, phone, email, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.FullName, p.PassportSeries, p.PassportNumber, p.Phone, p.Email, p.Description,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return writeError(err, "создания физлица", errPassportTaken)
	}
	return nil
}

func (r *personRepo) GetByID(ctx context.Context, id int64) (*model.Person, error) {
	p, err := scanPerson(conn(ctx, r.db).QueryRow(ctx, `SELECT `+personColumns+` FROM persons WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения физлица: %w", err)
	}
	return p, nil
}

func (r *personRepo) List(ctx context.Context) ([]*model.Person, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+personColumns+` FROM persons ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения физлиц: %w", err)
	}
	defer rows.Close()

	var result []*model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования физлица: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *personRepo) Update(ctx context.Context, id int64, patch model.PersonPatch) (*model.Person, error) {
	var b updateBuilder
	setPtr(&b, "full_name", patch.FullName)
	setPtr(&b, "passport_series", patch.PassportSeries)
	setPtr(&b, "passport_number", patch.PassportNumber)
	setPtr(&b, "phone", patch.Phone)
	setPtr(&b, "email", patch.Email)
	setPtr(&b, "description", patch.Description)
	if b.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := b.build("persons", id, personColumns)
	p, err := scanPerson(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, writeError(err, "обновления физлица", errPassportTaken)
	}
	return p, nil
}

func (r *personRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "persons", id)
}

func (r *personRepo) FindByPassport(ctx context.Context, series, number string, excludeID int64) (*model.Person, error) {
	p, err := scanPerson(conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+personColumns+` FROM persons
		WHERE passport_series = $1 AND passport_number = $2 AND id <> $3
		LIMIT 1`, series, number, excludeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска физлица по паспорту: %w", err)
	}
	return p, nil
}

// --- Подрядчики ---

// ContractorRepository — юридические лица (подрядчики).
type ContractorRepository interface {
	Create(ctx context.Context, c *model.Contractor) error
	GetByID(ctx context.Context, id int64) (*model.Contractor, error)
	List(ctx context.Context) ([]*model.Contractor, error)
	Update(ctx context.Context, id int64, patch model.ContractorPatch) (*model.Contractor, error)
	Delete(ctx context.Context, id int64) error
	// FindByNameINN ищет подрядчика по наименованию и ИНН. Нет записи — nil, nil.
	FindByNameINN(ctx context.Context, name, inn string, excludeID int64) (*model.Contractor, error)
}

type contractorRepo struct {
	db DBTX
}

// NewContractorRepository создаёт репозиторий подрядчиков.
func NewContractorRepository(db DBTX) ContractorRepository {
	return &contractorRepo{db: db}
}

const contractorColumns = `id, name, inn, phone, email, description, created_at`

const errContractorTaken = "подрядчик с таким наименованием и ИНН уже существует"

func scanContractor(row pgx.Row) (*model.Contractor, error) {
	c := &model.Contractor{}
	err := row.Scan(&c.ID, &c.Name, &c.INN, &c.Phone, &c.Email, &c.Description, &c.CreatedAt)
	return c, err
}

func (r *contractorRepo) Create(ctx context.Context, c *model.Contractor) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO contractors (name, inn, phone, email, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		c.Name, c.INN, c.Phone, c.Email, c.Description,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return writeError(err, "создания подрядчика", errContractorTaken)
	}
	return nil
}

func (r *contractorRepo) GetByID(ctx context.Context, id int64) (*model.Contractor, error) {
	c, err := scanContractor(conn(ctx, r.db).QueryRow(ctx, `SELECT `+contractorColumns+` FROM contractors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения подрядчика: %w", err)
	}
	return c, nil
}

func (r *contractorRepo) List(ctx context.Context) ([]*model.Contractor, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+contractorColumns+` FROM contractors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения подрядчиков: %w", err)
	}
	defer rows.Close()

	var result []*model.Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования подрядчика: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *contractorRepo) Update(ctx context.Context, id int64, patch model.ContractorPatch) (*model.Contractor, error) {
	var b updateBuilder
	setPtr(&b, "name", patch.Name)
	setPtr(&b, "inn", patch.INN)
	setPtr(&b, "phone", patch.Phone)
	setPtr(&b, "email", patch.Email)
	setPtr(&b, "description", patch.Description)
	if b.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := b.build("contractors", id, contractorColumns)
	c, err := scanContractor(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, writeError(err, "обновления подрядчика", errContractorTaken)
	}
	return c, nil
}

func (r *contractorRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "contractors", id)
}

func (r *contractorRepo) FindByNameINN(ctx context.Context, name, inn string, excludeID int64) (*model.Contractor, error) {
	c, err := scanContractor(conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+contractorColumns+` FROM contractors
		WHERE name = $1 AND inn = $2 AND id <> $3
		LIMIT 1`, name, inn, excludeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска подрядчика: %w", err)
	}
	return c, nil
}

// --- Бригады ---

// BrigadeRepository — собственные бригады застройщика.
type BrigadeRepository interface {
	Create(ctx context.Context, b *model.Brigade) error
	List(ctx context.Context) ([]*model.Brigade, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type brigadeRepo struct {
	db DBTX
}

// NewBrigadeRepository создаёт репозиторий бригад.
func NewBrigadeRepository(db DBTX) BrigadeRepository {
	return &brigadeRepo{db: db}
}

func (r *brigadeRepo) Create(ctx context.Context, b *model.Brigade) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO brigades (name) VALUES ($1) RETURNING id, created_at`, b.Name,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return writeError(err, "создания бригады", "бригада с таким названием уже существует")
	}
	return nil
}

func (r *brigadeRepo) List(ctx context.Context) ([]*model.Brigade, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, name, created_at FROM brigades ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения бригад: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[model.Brigade])
}

func (r *brigadeRepo) Rename(ctx context.Context, id int64, name string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE brigades SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return writeError(err, "обновления бригады", "бригада с таким названием уже существует")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *brigadeRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "brigades", id)
}
