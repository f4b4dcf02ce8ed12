// Пакет matrix — сборка шахматки объектов: этажи, объекты на этаже,
// признаки объектов (суд, письма, статус претензии).
package matrix

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// Cell — объект шахматки с признаками.
type Cell struct {
	Unit       model.Unit           `json:"unit"`
	Annotation model.UnitAnnotation `json:"annotation"`
}

// Matrix — шахматка корпуса.
type Matrix struct {
	// Floors — метки этажей сверху вниз
	Floors []string `json:"floors"`
	// ByFloor — объекты этажа в порядке номеров
	ByFloor map[string][]Cell `json:"by_floor"`
}

// floorKey возвращает метку этажа объекта. Объект без этажа — пустая метка.
func floorKey(u *model.Unit) string {
	if u.Floor == nil {
		return ""
	}
	return strings.TrimSpace(*u.Floor)
}

// parseNumber распознаёт целочисленную метку ("3", "-1").
func parseNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// compareFloors — порядок этажей: числовые по убыванию, затем
// нечисловые по возрастанию строки. Совпадающие числа ("01" и "1")
// упорядочиваются строкой, поэтому порядок полный.
func compareFloors(a, b string) int {
	na, aNum := parseNumber(a)
	nb, bNum := parseNumber(b)

	switch {
	case aNum && bNum:
		if c := cmp.Compare(nb, na); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// SortFloors сортирует метки этажей на месте и возвращает срез.
func SortFloors(labels []string) []string {
	slices.SortStableFunc(labels, compareFloors)
	return labels
}

// compareUnits — порядок объектов на этаже: числовые номера по
// возрастанию, затем остальные по строке, затем по ID.
func compareUnits(a, b *model.Unit) int {
	na, aNum := parseNumber(a.Name)
	nb, bNum := parseNumber(b.Name)

	switch {
	case aNum && bNum:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Build собирает шахматку из объектов и их признаков.
// Объекты без записи в annotations получают пустые признаки.
func Build(units []*model.Unit, annotations map[int64]model.UnitAnnotation) *Matrix {
	m := &Matrix{
		Floors:  []string{},
		ByFloor: make(map[string][]Cell),
	}

	sorted := slices.Clone(units)
	slices.SortStableFunc(sorted, compareUnits)

	for _, u := range sorted {
		key := floorKey(u)
		if _, ok := m.ByFloor[key]; !ok {
			m.Floors = append(m.Floors, key)
		}
		ann, ok := annotations[u.ID]
		if !ok {
			ann = model.UnitAnnotation{UnitID: u.ID}
		}
		m.ByFloor[key] = append(m.ByFloor[key], Cell{Unit: *u, Annotation: ann})
	}

	SortFloors(m.Floors)
	return m
}

// maxNumericName возвращает максимальный числовой номер объекта на этаже.
func maxNumericName(units []*model.Unit, floor string) (int, bool) {
	best, found := 0, false
	for _, u := range units {
		if floorKey(u) != floor {
			continue
		}
		if n, ok := parseNumber(u.Name); ok && (!found || n > best) {
			best, found = n, true
		}
	}
	return best, found
}

// NextUnitName вычисляет номер нового объекта на этаже: максимальный
// числовой номер этажа + 1. Если на этаже нет числовых номеров, берётся
// ближайший нижний этаж с числовыми номерами. Иначе — "1".
func NextUnitName(units []*model.Unit, floor string) string {
	floor = strings.TrimSpace(floor)
	if n, ok := maxNumericName(units, floor); ok {
		return strconv.Itoa(n + 1)
	}

	target, ok := parseNumber(floor)
	if !ok {
		return "1"
	}

	// Ближайший нижний этаж, на котором есть числовые номера.
	bestFloor, bestName, found := 0, 0, false
	for _, u := range units {
		f, fok := parseNumber(floorKey(u))
		if !fok || f >= target {
			continue
		}
		n, nok := parseNumber(u.Name)
		if !nok {
			continue
		}
		if !found || f > bestFloor || (f == bestFloor && n > bestName) {
			bestFloor, bestName, found = f, n, true
		}
	}
	if found {
		return strconv.Itoa(bestName + 1)
	}
	return "1"
}

// NextFloor возвращает метку этажа над самым верхним числовым (или "1").
func NextFloor(units []*model.Unit) string {
	best, found := 0, false
	for _, u := range units {
		if n, ok := parseNumber(floorKey(u)); ok && (!found || n > best) {
			best, found = n, true
		}
	}
	if !found {
		return "1"
	}
	return strconv.Itoa(best + 1)
}
