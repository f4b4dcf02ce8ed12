package filters

import (
	"time"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// Поля фильтра судебных дел.
const (
	FieldProject    Field = "projectId"
	FieldUnit       Field = "unitId"
	FieldStatus     Field = "statusId"
	FieldLawyer     Field = "lawyerId"
	FieldEngineer   Field = "engineerId"
	FieldPlaintiff  Field = "plaintiff"
	FieldDefendant  Field = "defendant"
	FieldCaseNumber Field = "caseNumber"
	FieldDate       Field = "date"
	FieldHideClosed Field = "hideClosed"
)

// CourtCaseFilters — значения фильтров реестра судебных дел.
// Пустой срез и пустая строка означают неактивный фильтр.
type CourtCaseFilters struct {
	ProjectIDs  []int64    `json:"projectId"`
	UnitIDs     []int64    `json:"unitId"`
	StatusIDs   []int64    `json:"statusId"`
	LawyerIDs   []string   `json:"lawyerId"`
	EngineerIDs []string   `json:"engineerId"`
	Plaintiff   string     `json:"plaintiff"`
	Defendant   string     `json:"defendant"`
	CaseNumber  string     `json:"caseNumber"`
	DateFrom    *time.Time `json:"dateFrom"`
	DateTo      *time.Time `json:"dateTo"`
	HideClosed  bool       `json:"hideClosed"`
}

func (f CourtCaseFilters) predicates() []predicate[*model.CourtCaseRow] {
	return []predicate[*model.CourtCaseRow]{
		{FieldProject, len(f.ProjectIDs) > 0, func(c *model.CourtCaseRow) bool {
			return inInt64(f.ProjectIDs, c.ProjectID)
		}},
		{FieldUnit, len(f.UnitIDs) > 0, func(c *model.CourtCaseRow) bool {
			return intersects(f.UnitIDs, c.UnitIDs)
		}},
		{FieldStatus, len(f.StatusIDs) > 0, func(c *model.CourtCaseRow) bool {
			return inInt64Ptr(f.StatusIDs, c.StatusID)
		}},
		{FieldLawyer, len(f.LawyerIDs) > 0, func(c *model.CourtCaseRow) bool {
			return inStringPtr(f.LawyerIDs, c.LawyerID)
		}},
		{FieldEngineer, len(f.EngineerIDs) > 0, func(c *model.CourtCaseRow) bool {
			return inStringPtr(f.EngineerIDs, c.ResponsibleEngineerID)
		}},
		{FieldPlaintiff, f.Plaintiff != "", func(c *model.CourtCaseRow) bool {
			return anyContainsFold(c.PartyNames(model.PartyPlaintiff), f.Plaintiff)
		}},
		{FieldDefendant, f.Defendant != "", func(c *model.CourtCaseRow) bool {
			return anyContainsFold(c.PartyNames(model.PartyDefendant), f.Defendant)
		}},
		{FieldCaseNumber, f.CaseNumber != "", func(c *model.CourtCaseRow) bool {
			return containsFold(c.Number, f.CaseNumber)
		}},
		{FieldDate, f.DateFrom != nil || f.DateTo != nil, func(c *model.CourtCaseRow) bool {
			return inDayRange(c.CaseDate, f.DateFrom, f.DateTo)
		}},
		{FieldHideClosed, f.HideClosed, func(c *model.CourtCaseRow) bool {
			return !c.StatusIsClosed
		}},
	}
}

var courtCaseCollectors = []collector[*model.CourtCaseRow]{
	{FieldProject, func(c *model.CourtCaseRow) []Option {
		return []Option{idOption(c.ProjectID, c.ProjectName)}
	}},
	{FieldUnit, func(c *model.CourtCaseRow) []Option {
		return pairedOptions(c.UnitIDs, c.UnitNames)
	}},
	{FieldStatus, func(c *model.CourtCaseRow) []Option {
		if c.StatusID == nil {
			return nil
		}
		return []Option{idOption(*c.StatusID, c.StatusName)}
	}},
	{FieldLawyer, func(c *model.CourtCaseRow) []Option {
		if c.LawyerID == nil {
			return nil
		}
		return []Option{strOption(*c.LawyerID, c.LawyerName)}
	}},
	{FieldEngineer, func(c *model.CourtCaseRow) []Option {
		if c.ResponsibleEngineerID == nil {
			return nil
		}
		return []Option{strOption(*c.ResponsibleEngineerID, c.EngineerName)}
	}},
	{FieldPlaintiff, func(c *model.CourtCaseRow) []Option {
		return nameOptions(c.PartyNames(model.PartyPlaintiff))
	}},
	{FieldDefendant, func(c *model.CourtCaseRow) []Option {
		return nameOptions(c.PartyNames(model.PartyDefendant))
	}},
}

// MatchCourtCase проверяет дело всеми фильтрами, кроме skip.
func MatchCourtCase(c *model.CourtCaseRow, f CourtCaseFilters, skip Field) bool {
	return matchAll(c, f.predicates(), skip)
}

// ApplyCourtCases возвращает дела, прошедшие все фильтры.
func ApplyCourtCases(cases []*model.CourtCaseRow, f CourtCaseFilters) []*model.CourtCaseRow {
	return apply(cases, f.predicates())
}

// CourtCaseOptions вычисляет доступные значения для каждого поля фильтра.
func CourtCaseOptions(cases []*model.CourtCaseRow, f CourtCaseFilters) map[Field][]Option {
	return options(cases, f.predicates(), courtCaseCollectors)
}
