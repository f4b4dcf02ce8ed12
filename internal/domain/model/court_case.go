package model

import "time"

// PartyRole — процессуальная роль стороны.
type PartyRole string

const (
	PartyPlaintiff PartyRole = "plaintiff"
	PartyDefendant PartyRole = "defendant"
)

// CourtCaseParty — сторона судебного дела: физлицо или подрядчик.
// Ровно одно из PersonID / ContractorID задано.
type CourtCaseParty struct {
	Role         PartyRole `json:"role"`
	PersonID     *int64    `json:"person_id,omitempty"`
	ContractorID *int64    `json:"contractor_id,omitempty"`
	// Name — заполняется при чтении
	Name string `json:"name,omitempty"`
}

// LawsuitClaim — исковое требование с суммами.
type LawsuitClaim struct {
	ID              int64    `json:"id,omitempty"`
	Name            string   `json:"name"`
	ClaimedAmount   *float64 `json:"claimed_amount,omitempty"`
	ConfirmedAmount *float64 `json:"confirmed_amount,omitempty"`
	PaidAmount      *float64 `json:"paid_amount,omitempty"`
}

// CourtCase — судебное дело.
type CourtCase struct {
	ID                    int64            `json:"id"`
	ProjectID             int64            `json:"project_id"`
	Number                string           `json:"number"`
	CaseDate              *time.Time       `json:"case_date,omitempty"`
	StatusID              *int64           `json:"status_id,omitempty"`
	LawyerID              *string          `json:"lawyer_id,omitempty"`
	ResponsibleEngineerID *string          `json:"responsible_engineer_id,omitempty"`
	Description           *string          `json:"description,omitempty"`
	FixStartDate          *time.Time       `json:"fix_start_date,omitempty"`
	FixEndDate            *time.Time       `json:"fix_end_date,omitempty"`
	UnitIDs               []int64          `json:"unit_ids"`
	DefectIDs             []int64          `json:"defect_ids"`
	ClaimIDs              []int64          `json:"claim_ids"`
	Parties               []CourtCaseParty `json:"parties"`
	LawsuitClaims         []LawsuitClaim   `json:"lawsuit_claims"`
	CreatedBy             *string          `json:"created_by,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
}

// CourtCasePatch — изменяемые поля дела. Срезы != nil заменяют набор целиком.
type CourtCasePatch struct {
	Number                *string          `json:"number"`
	CaseDate              *time.Time       `json:"case_date"`
	StatusID              *int64           `json:"status_id"`
	LawyerID              *string          `json:"lawyer_id"`
	ResponsibleEngineerID *string          `json:"responsible_engineer_id"`
	Description           *string          `json:"description"`
	FixStartDate          *time.Time       `json:"fix_start_date"`
	FixEndDate            *time.Time       `json:"fix_end_date"`
	UnitIDs               []int64          `json:"unit_ids"`
	DefectIDs             []int64          `json:"defect_ids"`
	ClaimIDs              []int64          `json:"claim_ids"`
	Parties               []CourtCaseParty `json:"parties"`
	LawsuitClaims         []LawsuitClaim   `json:"lawsuit_claims"`
}

// CourtCaseRow — дело с данными связанных записей.
type CourtCaseRow struct {
	CourtCase
	ProjectName    *string
	StatusName     *string
	StatusColor    *string
	StatusIsClosed bool
	LawyerName     *string
	EngineerName   *string
	UnitNames      []string
	// TotalClaimed — сумма заявленных требований
	TotalClaimed float64
}

// PartyNames возвращает имена сторон с заданной ролью.
func (c *CourtCase) PartyNames(role PartyRole) []string {
	var names []string
	for _, p := range c.Parties {
		if p.Role == role && p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}
