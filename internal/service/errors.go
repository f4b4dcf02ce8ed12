// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
	"github.com/svarovsky7/GarantHUB-sub002/internal/storage"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся или используемый ресурс).
	ErrConflict = errors.New("конфликт")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrStorageMisconfigured — bucket вложений отсутствует в хранилище.
	ErrStorageMisconfigured = errors.New("хранилище вложений настроено неверно")
)

// detail возвращает текст ошибки после префикса sentinel.
func detail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// translate переводит ошибки репозиториев и хранилища в ошибки сервиса.
// what — что именно не найдено ("объект", "претензия").
// Ссылка на несуществующую запись при записи — ошибка валидации.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, detail(err, repository.ErrConflict))
	case errors.Is(err, repository.ErrForeignKey):
		return fmt.Errorf("%w: ссылка на несуществующую запись (%s)", ErrValidation, detail(err, repository.ErrForeignKey))
	}
	return translateStorage(err)
}

// translateDelete — как translate, но нарушение ссылочной целостности
// при удалении означает, что на запись ссылаются другие.
func translateDelete(err error, what string) error {
	if errors.Is(err, repository.ErrForeignKey) {
		return fmt.Errorf("%w: %s используется в других записях", ErrConflict, what)
	}
	return translate(err, what)
}

// translateStorage сообщает о неверном bucket с его именем,
// остальные ошибки хранилища возвращаются без изменений.
func translateStorage(err error) error {
	if errors.Is(err, storage.ErrBucketNotFound) {
		return fmt.Errorf("%w: %w", ErrStorageMisconfigured, err) //nolint:errorlint // намеренный двойной wrap
	}
	return err
}
