package pipeline

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/job-portal-api/internal/models"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

var validate = validator.New()

// ErrNoFields is returned when no applicable field was supplied.
var ErrNoFields = appErrors.Validation("No fields to update")

// SetClause is one column assignment of a Mutation.
type SetClause struct {
	Field string
	Value any
}

// Mutation is a validated, ordered set of assignments for one row.
type Mutation struct {
	Table    string
	TargetID string
	Clauses  []SetClause
}

// Value returns the bound value of field.
func (m *Mutation) Value(field string) (any, bool) {
	for _, c := range m.Clauses {
		if c.Field == field {
			return c.Value, true
		}
	}
	return nil, false
}

// Set appends a clause or replaces the value of an existing one.
func (m *Mutation) Set(field string, value any) {
	for i, c := range m.Clauses {
		if c.Field == field {
			m.Clauses[i].Value = value
			return
		}
	}
	m.Clauses = append(m.Clauses, SetClause{Field: field, Value: value})
}

// Fields lists the assigned columns in order.
func (m *Mutation) Fields() []string {
	out := make([]string, len(m.Clauses))
	for i, c := range m.Clauses {
		out[i] = c.Field
	}
	return out
}

// Empty reports whether the mutation assigns nothing.
func (m *Mutation) Empty() bool {
	return m == nil || len(m.Clauses) == 0
}

// Collect filters raw through the fields of reg applicable to role and
// returns the coerced assignments in registry order. Fields that are not
// applicable, unknown or nil are ignored. The result may be empty.
func Collect(reg *Registry, targetID string, role models.UserRole, raw RawFields) (*Mutation, error) {
	m := &Mutation{Table: reg.Table, TargetID: targetID}
	for _, spec := range reg.Applicable(role) {
		value, present := raw[spec.Name]
		if !present || value == nil {
			continue
		}
		coerced, err := coerce(spec, value)
		if err != nil {
			return nil, invalidValue(spec.Name, err)
		}
		if coerced != nil && spec.Rule != "" {
			if err := validate.Var(coerced, spec.Rule); err != nil {
				return nil, invalidValue(spec.Name, err)
			}
		}
		m.Clauses = append(m.Clauses, SetClause{Field: spec.Name, Value: coerced})
	}
	return m, nil
}

// BuildMutation is Collect followed by the empty check.
func BuildMutation(reg *Registry, targetID string, role models.UserRole, raw RawFields) (*Mutation, error) {
	m, err := Collect(reg, targetID, role, raw)
	if err != nil {
		return nil, err
	}
	if m.Empty() {
		return nil, ErrNoFields
	}
	return m, nil
}

func invalidValue(field string, cause error) error {
	return appErrors.Wrap(cause, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid value for %s", field))
}
