// Пакет filters — фильтрация реестров и вычисление доступных значений фильтров.
//
// Для каждого поля набор вариантов строится по записям, прошедшим все
// остальные фильтры, кроме фильтра самого поля. Так пользователь видит,
// какие значения ещё достижимы, и не сужает выборку до пустой незаметно.
package filters

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Field — имя фильтруемого поля.
type Field string

// Option — вариант значения фильтра.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// predicate — проверка одного поля. Неактивный фильтр пропускает всё.
type predicate[T any] struct {
	field  Field
	active bool
	match  func(T) bool
}

// collector — извлечение вариантов поля из записи.
type collector[T any] struct {
	field  Field
	values func(T) []Option
}

// matchAll проверяет запись всеми активными предикатами, кроме skip.
// Пустой skip — проверяются все.
func matchAll[T any](item T, preds []predicate[T], skip Field) bool {
	for _, p := range preds {
		if !p.active || p.field == skip {
			continue
		}
		if !p.match(item) {
			return false
		}
	}
	return true
}

// apply возвращает записи, прошедшие все фильтры.
func apply[T any](items []T, preds []predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if matchAll(it, preds, "") {
			out = append(out, it)
		}
	}
	return out
}

// options строит варианты для каждого поля с исключением его собственного фильтра.
func options[T any](items []T, preds []predicate[T], collectors []collector[T]) map[Field][]Option {
	result := make(map[Field][]Option, len(collectors))
	for _, c := range collectors {
		seen := make(map[string]Option)
		for _, it := range items {
			if !matchAll(it, preds, c.field) {
				continue
			}
			for _, o := range c.values(it) {
				if _, ok := seen[o.Value]; !ok {
					seen[o.Value] = o
				}
			}
		}
		result[c.field] = sortedOptions(seen)
	}
	return result
}

func sortedOptions(seen map[string]Option) []Option {
	out := make([]Option, 0, len(seen))
	for _, o := range seen {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Option) int {
		if c := strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

// --- Примитивы сравнения ---

func inInt64(set []int64, v int64) bool {
	return slices.Contains(set, v)
}

func inInt64Ptr(set []int64, v *int64) bool {
	return v != nil && slices.Contains(set, *v)
}

func inStringPtr(set []string, v *string) bool {
	return v != nil && slices.Contains(set, *v)
}

func intersects(set, values []int64) bool {
	for _, v := range values {
		if slices.Contains(set, v) {
			return true
		}
	}
	return false
}

// containsFold — регистронезависимое вхождение подстроки.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}

func anyContainsFold(values []string, substr string) bool {
	for _, v := range values {
		if containsFold(v, substr) {
			return true
		}
	}
	return false
}

// dayNumber — дата без времени в виде сравнимого числа YYYYMMDD.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// inDayRange — включительное сравнение по дням. Граница nil не ограничивает.
func inDayRange(v *time.Time, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if v == nil {
		return false
	}
	day := dayNumber(*v)
	if from != nil && day < dayNumber(*from) {
		return false
	}
	if to != nil && day > dayNumber(*to) {
		return false
	}
	return true
}

// idOption — вариант для числового идентификатора с подписью.
func idOption(id int64, label *string) Option {
	v := strconv.FormatInt(id, 10)
	l := v
	if label != nil && *label != "" {
		l = *label
	}
	return Option{Value: v, Label: l}
}

// strOption — вариант для строкового идентификатора с подписью.
func strOption(id string, label *string) Option {
	l := id
	if label != nil && *label != "" {
		l = *label
	}
	return Option{Value: id, Label: l}
}

// pairedOptions — варианты из параллельных срезов id и подписей.
func pairedOptions(ids []int64, labels []string) []Option {
	out := make([]Option, 0, len(ids))
	for i, id := range ids {
		var label *string
		if i < len(labels) {
			label = &labels[i]
		}
		out = append(out, idOption(id, label))
	}
	return out
}

func nameOptions(names []string) []Option {
	out := make([]Option, 0, len(names))
	for _, n := range names {
		out = append(out, Option{Value: n, Label: n})
	}
	return out
}
