package pipeline

import (
	"regexp"

	"github.com/noah-isme/job-portal-api/internal/models"
)

// Kind selects the coercion applied to a raw input value.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindDecimal
	KindBoolean
	KindDate
	// KindStringList accepts a list of strings (or a single string) and
	// stores it joined with ", ".
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindStringList:
		return "string_list"
	}
	return "unknown"
}

// FieldSpec declares one mutable column.
type FieldSpec struct {
	Name string
	// Roles limits the field to the listed roles. Empty means every role.
	Roles []models.UserRole
	Kind  Kind
	// Rule is a validator tag checked against the coerced value.
	Rule string
	// Nullable lets an empty string clear a non-text column.
	Nullable bool
}

// AppliesTo reports whether role may write the field.
func (f FieldSpec) AppliesTo(role models.UserRole) bool {
	if len(f.Roles) == 0 {
		return true
	}
	for _, r := range f.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RawFields is a decoded request body. JSON objects and form values are
// both normalised into this shape.
type RawFields map[string]any

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Registry is the ordered allow-list of mutable fields for one table.
type Registry struct {
	Table  string
	Fields []FieldSpec
}

// NewRegistry validates identifiers and returns the registry. It panics on
// an invalid table or field name since registries are static.
func NewRegistry(table string, fields ...FieldSpec) *Registry {
	if !identPattern.MatchString(table) {
		panic("pipeline: invalid table name " + table)
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if !identPattern.MatchString(f.Name) {
			panic("pipeline: invalid field name " + f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			panic("pipeline: duplicate field " + f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return &Registry{Table: table, Fields: fields}
}

// Applicable returns the fields role may write, in registry order.
func (r *Registry) Applicable(role models.UserRole) []FieldSpec {
	out := make([]FieldSpec, 0, len(r.Fields))
	for _, f := range r.Fields {
		if f.AppliesTo(role) {
			out = append(out, f)
		}
	}
	return out
}
