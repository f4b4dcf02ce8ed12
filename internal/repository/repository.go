// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrForeignKey — ссылка на несуществующую запись или удаление используемой.
	ErrForeignKey = errors.New("нарушена ссылочная целостность")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// conn возвращает транзакцию из контекста, если она открыта, иначе db.
func conn(ctx context.Context, db DBTX) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

// TxRunner выполняет операции в транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции. Транзакция передаётся через
// контекст: все репозитории, вызванные с этим контекстом, работают в ней.
// Вложенный вызов переиспользует уже открытую транзакцию.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// writeError переводит ошибки записи PostgreSQL в ошибки слоя.
func writeError(err error, what, conflict string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s", ErrConflict, conflict)
	case isForeignKeyViolation(err):
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
	}
	return fmt.Errorf("ошибка %s: %w", what, err)
}

// updateBuilder собирает SET-часть UPDATE из заданных полей.
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

// setPtr добавляет колонку, только если значение передано.
func setPtr[T any](b *updateBuilder, column string, value *T) {
	if value != nil {
		b.set(column, *value)
	}
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

// build возвращает запрос UPDATE table SET ... WHERE id = $N с аргументами.
func (b *updateBuilder) build(table string, id any, returning string) (string, []any) {
	args := append(b.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(b.sets, ", "), len(args))
	if returning != "" {
		query += " RETURNING " + returning
	}
	return query, args
}

// whereBuilder собирает условия WHERE с пронумерованными аргументами.
type whereBuilder struct {
	conditions []string
	args       []any
}

// add добавляет условие; %d в cond заменяется номером аргумента.
func (w *whereBuilder) add(cond string, value any) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// replaceLinks заменяет набор связей ownerID → ids в таблице связи.
func replaceLinks(ctx context.Context, db DBTX, table, ownerCol, linkCol string, ownerID int64, ids []int64) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, ownerCol)
	if _, err := db.Exec(ctx, del, ownerID); err != nil {
		return fmt.Errorf("ошибка очистки %s: %w", table, err)
	}
	if len(ids) == 0 {
		return nil
	}
	ins := fmt.Sprintf(
		"INSERT INTO %s (%s, %s) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING",
		table, ownerCol, linkCol,
	)
	if _, err := db.Exec(ctx, ins, ownerID, ids); err != nil {
		return writeError(err, "записи "+table, "связь уже существует")
	}
	return nil
}

// deleteByID удаляет запись по id; отсутствие записи — ErrNotFound.
func deleteByID(ctx context.Context, db DBTX, table string, id int64) error {
	tag, err := db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return writeError(err, "удаления из "+table, "")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// attachmentIDsExpr — подзапрос идентификаторов вложений записи.
func attachmentIDsExpr(linkTable, linkCol, ownerRef string) string {
	return fmt.Sprintf(
		"COALESCE(ARRAY(SELECT attachment_id FROM %s WHERE %s = %s ORDER BY attachment_id), '{}')",
		linkTable, linkCol, ownerRef,
	)
}
