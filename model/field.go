package model

import (
	"time"

	"github.com/fieldline/fieldline/pkg/annotate"
)

// FieldType classifies what kind of value a contract field expects
type FieldType string

const (
	FieldTypeName      FieldType = "name"
	FieldTypeEmail     FieldType = "email"
	FieldTypeCompany   FieldType = "company"
	FieldTypeAddress   FieldType = "address"
	FieldTypePhone     FieldType = "phone"
	FieldTypeDate      FieldType = "date"
	FieldTypeSignature FieldType = "signature"
	FieldTypeOther     FieldType = "other"
)

// ParseFieldType maps a free-text type label from the model stream onto a
// known FieldType, defaulting to FieldTypeOther
func ParseFieldType(s string) FieldType {
	switch FieldType(s) {
	case FieldTypeName, FieldTypeEmail, FieldTypeCompany, FieldTypeAddress,
		FieldTypePhone, FieldTypeDate, FieldTypeSignature:
		return FieldType(s)
	default:
		return FieldTypeOther
	}
}

// FieldDefinition is the canonical record for one field name belonging to
// one contact in one document. At most one definition exists per
// (document_id, field_name, contact_id) triple
type FieldDefinition struct {
	ID              string              `json:"id"`
	DocumentID      string              `json:"document_id"`
	ContactID       string              `json:"contact_id"`
	Tenant          string              `json:"tenant"`
	FieldName       string              `json:"field_name"`
	FieldType       FieldType           `json:"field_type"`
	Required        bool                `json:"required"`
	Filled          bool                `json:"filled"`
	Value           string              `json:"value,omitempty"`
	PlaceholderText string              `json:"placeholder_text"`
	Position        *DefinitionPosition `json:"position,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// DefinitionPosition is the position metadata persisted on a definition: the
// first occurrence is the primary position, and every occurrence is listed so
// projection can resolve each appearance independently
type DefinitionPosition struct {
	Type        string            `json:"type"` // always "definition"
	Primary     annotate.Position `json:"primary"`
	Occurrences []OccurrencePoint `json:"occurrences"`
}

// OccurrencePoint is one occurrence's entry inside DefinitionPosition
type OccurrencePoint struct {
	ID              string            `json:"id"`
	PlaceholderText string            `json:"placeholder_text"`
	Position        annotate.Position `json:"position"`
}

// FieldOccurrence is one physical appearance of a field's placeholder text in
// the document, owned by exactly one FieldDefinition
type FieldOccurrence struct {
	ID              string            `json:"id"`
	DefinitionID    string            `json:"definition_id"`
	PlaceholderText string            `json:"placeholder_text"`
	Position        annotate.Position `json:"position"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Contact is a signing party referenced by one or more field definitions.
// The id is reused for the same signer reference within one extraction run
// but is not guaranteed stable across runs
type Contact struct {
	ID        string    `json:"id"`
	Tenant    string    `json:"tenant"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
