package matrix

import (
	"slices"
	"testing"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

func unit(id int64, floor, name string) *model.Unit {
	u := &model.Unit{ID: id, ProjectID: 1, Name: name}
	if floor != "" {
		u.Floor = &floor
	}
	return u
}

func TestSortFloors(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "числовые по убыванию, цоколь в конце",
			in:   []string{"3", "1", "Цоколь", "2"},
			want: []string{"3", "2", "1", "Цоколь"},
		},
		{
			name: "две нечисловые метки по строке",
			in:   []string{"Технический", "1", "Подвал", "Цоколь"},
			want: []string{"1", "Подвал", "Технический", "Цоколь"},
		},
		{
			name: "отрицательные этажи",
			in:   []string{"-1", "10", "2", "-2"},
			want: []string{"10", "2", "-1", "-2"},
		},
		{
			name: "одинаковые числа в разной записи",
			in:   []string{"1", "01"},
			want: []string{"01", "1"},
		},
		{
			name: "пустой список",
			in:   []string{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortFloors(slices.Clone(tt.in))
			if !slices.Equal(got, tt.want) {
				t.Errorf("SortFloors(%v) = %v, хотели %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSortFloors_Deterministic(t *testing.T) {
	orders := [][]string{
		{"3", "1", "Цоколь", "2", "Подвал"},
		{"Подвал", "Цоколь", "2", "1", "3"},
		{"2", "Подвал", "3", "Цоколь", "1"},
	}
	want := []string{"3", "2", "1", "Подвал", "Цоколь"}

	for i := 0; i < 3; i++ {
		for _, in := range orders {
			got := SortFloors(slices.Clone(in))
			if !slices.Equal(got, want) {
				t.Fatalf("SortFloors(%v) = %v, хотели %v", in, got, want)
			}
		}
	}
}

func TestBuild(t *testing.T) {
	units := []*model.Unit{
		unit(1, "1", "2"),
		unit(2, "1", "1"),
		unit(3, "3", "10"),
		unit(4, "Цоколь", "Кладовая"),
		unit(5, "2", "5"),
		unit(6, "1", "1а"),
	}
	status := "В работе"
	annotations := map[int64]model.UnitAnnotation{
		3: {UnitID: 3, HasCourtCase: true, ClaimStatusName: &status},
	}

	m := Build(units, annotations)

	wantFloors := []string{"3", "2", "1", "Цоколь"}
	if !slices.Equal(m.Floors, wantFloors) {
		t.Fatalf("Floors = %v, хотели %v", m.Floors, wantFloors)
	}

	var names []string
	for _, c := range m.ByFloor["1"] {
		names = append(names, c.Unit.Name)
	}
	if !slices.Equal(names, []string{"1", "2", "1а"}) {
		t.Errorf("объекты 1 этажа = %v", names)
	}

	top := m.ByFloor["3"][0]
	if !top.Annotation.HasCourtCase || top.Annotation.ClaimStatusName == nil {
		t.Errorf("признаки объекта 3 не перенесены: %+v", top.Annotation)
	}
	if m.ByFloor["2"][0].Annotation.UnitID != 5 {
		t.Errorf("пустые признаки должны содержать UnitID")
	}
}

func TestBuild_UnitsWithoutFloor(t *testing.T) {
	m := Build([]*model.Unit{unit(1, "", "1"), unit(2, "2", "3")}, nil)

	if !slices.Equal(m.Floors, []string{"2", ""}) {
		t.Errorf("Floors = %q", m.Floors)
	}
	if len(m.ByFloor[""]) != 1 {
		t.Errorf("объект без этажа должен попасть в группу с пустой меткой")
	}
}

func TestNextUnitName(t *testing.T) {
	units := []*model.Unit{
		unit(1, "1", "1"),
		unit(2, "1", "2"),
		unit(3, "1", "4"),
		unit(4, "2", "Офис"),
		unit(5, "Цоколь", "Кладовая"),
		unit(6, "Цоколь", "7"),
	}

	tests := []struct {
		name  string
		floor string
		want  string
	}{
		{name: "максимум этажа + 1", floor: "1", want: "5"},
		{name: "этаж без числовых номеров — нижний этаж", floor: "2", want: "5"},
		{name: "пустой этаж выше — ближайший нижний с номерами", floor: "4", want: "5"},
		{name: "нечисловой этаж со своими номерами", floor: "Цоколь", want: "8"},
		{name: "нечисловой пустой этаж", floor: "Тех", want: "1"},
		{name: "нижних этажей нет", floor: "0", want: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextUnitName(units, tt.floor)
			if got != tt.want {
				t.Errorf("NextUnitName(%q) = %q, хотели %q", tt.floor, got, tt.want)
			}
		})
	}
}

func TestNextFloor(t *testing.T) {
	if got := NextFloor(nil); got != "1" {
		t.Errorf("NextFloor(nil) = %q, хотели 1", got)
	}
	units := []*model.Unit{unit(1, "3", "1"), unit(2, "Цоколь", "2"), unit(3, "-1", "3")}
	if got := NextFloor(units); got != "4" {
		t.Errorf("NextFloor = %q, хотели 4", got)
	}
}
