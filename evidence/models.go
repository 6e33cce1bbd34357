package evidence

import "time"

// FieldType names the input control a field renders as.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeCheckbox FieldType = "checkbox"
	TypeRadio    FieldType = "radio"
	TypeSelect   FieldType = "select"
	TypeFile     FieldType = "file"
)

// ProblemType is the customer-facing problem category a field set belongs to.
type ProblemType string

const (
	ProblemItemNotReceived ProblemType = "item_not_received"
	ProblemDamagedItem     ProblemType = "damaged_item"
	ProblemWrongItem       ProblemType = "wrong_item"
	ProblemNotAsDescribed  ProblemType = "not_as_described"
	ProblemUnauthorized    ProblemType = "unauthorized"
	ProblemOther           ProblemType = "other"
)

// ProblemTypes lists every category in display order.
var ProblemTypes = []ProblemType{
	ProblemItemNotReceived,
	ProblemDamagedItem,
	ProblemWrongItem,
	ProblemNotAsDescribed,
	ProblemUnauthorized,
	ProblemOther,
}

// Valid reports whether p is a known category.
func (p ProblemType) Valid() bool {
	for _, known := range ProblemTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Config mirrors a row of evidence_field_configs.
type Config struct {
	ID          string
	ClientID    string
	ProblemType ProblemType
	Key         string
	Label       string
	Type        FieldType
	Placeholder string
	HelpText    string
	Options     []string
	IsVisible   bool
	IsRequired  bool
	IsCustom    bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View is what the editor shows for one category. Fallback is true when the
// fields came from the built-in defaults because the store was unreachable;
// nothing done against a fallback view is persisted.
type View struct {
	ProblemType ProblemType
	Configs     []Config
	Fallback    bool
}

// NewCustomField carries the merchant input for a custom question.
type NewCustomField struct {
	Label      string
	Type       FieldType
	Options    []string
	IsRequired bool
	HelpText   string
}
