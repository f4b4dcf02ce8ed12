package filters

import "github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"

// FieldNumber — номер претензии.
const FieldNumber Field = "number"

// ClaimFilters — фильтры реестра претензий.
type ClaimFilters struct {
	ProjectIDs  []int64  `json:"projectId"`
	StatusIDs   []int64  `json:"statusId"`
	UnitIDs     []int64  `json:"unitId"`
	EngineerIDs []string `json:"engineerId"`
	Number      string   `json:"number"`
	HideClosed  bool     `json:"hideClosed"`
}

func (f ClaimFilters) predicates() []predicate[*model.ClaimRow] {
	return []predicate[*model.ClaimRow]{
		{FieldProject, len(f.ProjectIDs) > 0, func(c *model.ClaimRow) bool {
			return inInt64(f.ProjectIDs, c.ProjectID)
		}},
		{FieldStatus, len(f.StatusIDs) > 0, func(c *model.ClaimRow) bool {
			return inInt64Ptr(f.StatusIDs, c.StatusID)
		}},
		{FieldUnit, len(f.UnitIDs) > 0, func(c *model.ClaimRow) bool {
			return intersects(f.UnitIDs, c.UnitIDs)
		}},
		{FieldEngineer, len(f.EngineerIDs) > 0, func(c *model.ClaimRow) bool {
			return inStringPtr(f.EngineerIDs, c.ResponsibleEngineerID)
		}},
		{FieldNumber, f.Number != "", func(c *model.ClaimRow) bool {
			return containsFold(c.Number, f.Number)
		}},
		{FieldHideClosed, f.HideClosed, func(c *model.ClaimRow) bool {
			return !c.StatusIsClosed
		}},
	}
}

var claimCollectors = []collector[*model.ClaimRow]{
	{FieldProject, func(c *model.ClaimRow) []Option {
		return []Option{idOption(c.ProjectID, c.ProjectName)}
	}},
	{FieldStatus, func(c *model.ClaimRow) []Option {
		if c.StatusID == nil {
			return nil
		}
		return []Option{idOption(*c.StatusID, c.StatusName)}
	}},
	{FieldUnit, func(c *model.ClaimRow) []Option {
		return pairedOptions(c.UnitIDs, c.UnitNames)
	}},
	{FieldEngineer, func(c *model.ClaimRow) []Option {
		if c.ResponsibleEngineerID == nil {
			return nil
		}
		return []Option{strOption(*c.ResponsibleEngineerID, c.EngineerName)}
	}},
}

// ApplyClaims возвращает претензии, прошедшие все фильтры.
func ApplyClaims(claims []*model.ClaimRow, f ClaimFilters) []*model.ClaimRow {
	return apply(claims, f.predicates())
}

// ClaimOptions вычисляет доступные значения фильтров претензий.
func ClaimOptions(claims []*model.ClaimRow, f ClaimFilters) map[Field][]Option {
	return options(claims, f.predicates(), claimCollectors)
}

// DefectFilters — фильтры реестра дефектов.
type DefectFilters struct {
	ProjectIDs []int64 `json:"projectId"`
	StatusIDs  []int64 `json:"statusId"`
	UnitIDs    []int64 `json:"unitId"`
	HideClosed bool    `json:"hideClosed"`
}

func (f DefectFilters) predicates() []predicate[*model.DefectRow] {
	return []predicate[*model.DefectRow]{
		{FieldProject, len(f.ProjectIDs) > 0, func(d *model.DefectRow) bool {
			return inInt64(f.ProjectIDs, d.ProjectID)
		}},
		{FieldStatus, len(f.StatusIDs) > 0, func(d *model.DefectRow) bool {
			return inInt64Ptr(f.StatusIDs, d.StatusID)
		}},
		{FieldUnit, len(f.UnitIDs) > 0, func(d *model.DefectRow) bool {
			return inInt64Ptr(f.UnitIDs, d.UnitID)
		}},
		{FieldHideClosed, f.HideClosed, func(d *model.DefectRow) bool {
			return !d.StatusIsClosed
		}},
	}
}

var defectCollectors = []collector[*model.DefectRow]{
	{FieldProject, func(d *model.DefectRow) []Option {
		return []Option{idOption(d.ProjectID, d.ProjectName)}
	}},
	{FieldStatus, func(d *model.DefectRow) []Option {
		if d.StatusID == nil {
			return nil
		}
		return []Option{idOption(*d.StatusID, d.StatusName)}
	}},
	{FieldUnit, func(d *model.DefectRow) []Option {
		if d.UnitID == nil {
			return nil
		}
		return []Option{idOption(*d.UnitID, d.UnitName)}
	}},
}

// ApplyDefects возвращает дефекты, прошедшие все фильтры.
func ApplyDefects(defects []*model.DefectRow, f DefectFilters) []*model.DefectRow {
	return apply(defects, f.predicates())
}

// DefectOptions вычисляет доступные значения фильтров дефектов.
func DefectOptions(defects []*model.DefectRow, f DefectFilters) map[Field][]Option {
	return options(defects, f.predicates(), defectCollectors)
}
