package domain

import "fmt"

// Grade is a UK heritage listing grade.
type Grade string

// Listing grades, per the Planning (Listed Buildings and Conservation Areas)
// Act 1990. GradeII is the default for unrecognised source values.
const (
	GradeI      Grade = "I"
	GradeIIStar Grade = "II*"
	GradeII     Grade = "II"
)

// gradeMap normalises source grade tokens. Sources use roman numerals or
// arabic digits interchangeably.
var gradeMap = map[string]Grade{
	"I":   GradeI,
	"1":   GradeI,
	"II*": GradeIIStar,
	"2*":  GradeIIStar,
	"II":  GradeII,
	"2":   GradeII,
}

// NormalizeGrade maps a source grade token to a canonical Grade,
// defaulting to II.
func NormalizeGrade(raw string) Grade {
	if g, ok := gradeMap[raw]; ok {
		return g
	}
	return GradeII
}

// ListedBuilding is the canonical record for a Historic England listed
// building. Immutable after construction; pointer fields are nullable
// columns.
type ListedBuilding struct {
	ListEntryNumber  string  `json:"list_entry_number"`
	Name             string  `json:"name"`
	Grade            Grade   `json:"grade"`
	AddressLine1     *string `json:"address_line_1"`
	AddressLine2     *string `json:"address_line_2"`
	Town             string  `json:"town"`
	Postcode         *string `json:"postcode"`
	Borough          string  `json:"borough"`
	Location         string  `json:"location"` // WKT POINT, longitude first
	Lng              float64 `json:"lng"`
	Lat              float64 `json:"lat"`
	ListDate         *string `json:"list_date"`
	AmendedDate      *string `json:"amended_date"`
	LegacyUID        *string `json:"legacy_uid"`
	DocumentationURL *string `json:"documentation_url"`
	DataSource       string  `json:"data_source"`
}

// ConservationArea is the canonical record for a conservation area boundary.
type ConservationArea struct {
	Name                  string   `json:"name"`
	Reference             *string  `json:"reference"`
	Borough               string   `json:"borough"`
	DesignationDate       *string  `json:"designation_date"`
	BoundaryWKT           string   `json:"boundary_wkt"` // always a MULTIPOLYGON
	AreaHectares          *float64 `json:"area_hectares"`
	Description           *string  `json:"description"`
	CharacterAppraisalURL *string  `json:"character_appraisal_url"`
	ManagementPlanURL     *string  `json:"management_plan_url"`
	HasArticle4           bool     `json:"has_article_4"`
	Article4Restrictions  []string `json:"article_4_restrictions"`
	Article4Date          *string  `json:"article_4_date"`
	DataSource            string   `json:"data_source"`
}

// SkipError marks a record that failed a domain filter. A skip is a normal
// outcome, counted separately from transform failures, and never aborts the
// run.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return e.Reason }

func skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}
