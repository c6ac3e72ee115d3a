package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// checkConstraintErrors names the client error for each CHECK constraint.
var checkConstraintErrors = map[string]*appErrors.Error{
	"jobs_salary_range": pipeline.ErrSalaryRange,
}

var errConstraintViolation = appErrors.Validation("Value violates a data constraint")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// mapCheckViolation turns a CHECK constraint failure into a validation
// error and returns anything else unchanged.
func mapCheckViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != checkViolation {
		return err
	}
	if mapped, ok := checkConstraintErrors[pqErr.Constraint]; ok {
		return appErrors.Wrap(err, mapped.Code, mapped.Status, mapped.Message)
	}
	return appErrors.Wrap(err, errConstraintViolation.Code, errConstraintViolation.Status, errConstraintViolation.Message)
}

// validID reports whether id is a canonical uuid. Anything else cannot
// match a row and would make postgres reject the cast.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
