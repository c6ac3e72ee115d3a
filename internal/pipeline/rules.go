package pipeline

import (
	"fmt"
	"unicode/utf8"

	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/pkg/hash"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

// Business rule failures.
var (
	ErrSalaryRange          = appErrors.Validation("Maximum salary must be greater than or equal to minimum salary")
	ErrPasswordRequired     = appErrors.Validation("Current password and new password are required")
	ErrPasswordTooShort     = appErrors.Validation(fmt.Sprintf("New password must be at least %d characters long", minPasswordLength))
	ErrPasswordTooLong      = appErrors.Validation(fmt.Sprintf("New password must be at most %d bytes long", maxPasswordBytes))
	ErrPasswordUnchanged    = appErrors.Validation("New password must be different from current password")
	ErrCurrentPasswordWrong = appErrors.Validation("Current password is incorrect")
	ErrNotOwned             = appErrors.Clone(appErrors.ErrNotFound, "not found or no permission")
)

// ValidateSalaryRange rejects a mutation carrying both salary bounds with the
// maximum below the minimum. Equal bounds are accepted.
func ValidateSalaryRange(m *Mutation) error {
	minRaw, okMin := m.Value("salary_min")
	maxRaw, okMax := m.Value("salary_max")
	if !okMin || !okMax {
		return nil
	}
	minV, okMin := minRaw.(float64)
	maxV, okMax := maxRaw.(float64)
	if !okMin || !okMax {
		return nil
	}
	if maxV < minV {
		return ErrSalaryRange
	}
	return nil
}

// ValidatePasswordChange checks the shape of a password change request.
func ValidatePasswordChange(current, next string) error {
	if current == "" || next == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(next) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(next) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	if next == current {
		return ErrPasswordUnchanged
	}
	return nil
}

// BuildPasswordMutation validates the request, verifies current against the
// stored hash and returns a single clause mutation carrying the new hash.
func BuildPasswordMutation(userID, storedHash, current, next string, hasher hash.PasswordHasher) (*Mutation, error) {
	if err := ValidatePasswordChange(current, next); err != nil {
		return nil, err
	}
	if !hasher.Verify(storedHash, current) {
		return nil, ErrCurrentPasswordWrong
	}
	hashed, err := hasher.Hash(next)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	return BuildMutation(PasswordRegistry, userID, "", RawFields{"password_hash": hashed})
}

// ValidateWithdrawal only lets applications that are not yet decided be
// withdrawn.
func ValidateWithdrawal(status models.ApplicationStatus) error {
	if status.Terminal() {
		return appErrors.Validation(fmt.Sprintf("Cannot withdraw application with status: %s", status))
	}
	return nil
}

// CheckOwnership passes when actor created the row or holds one of the
// override roles. Failures look like a missing row so ids are not leaked.
func CheckOwnership(actor *models.Actor, ownerID string, overrideRoles ...models.UserRole) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.HasRole(overrideRoles...) {
		return nil
	}
	if ownerID == "" || actor.ID != ownerID {
		return ErrNotOwned
	}
	return nil
}

// ValidateStatusTransition checks an employer review decision. Decided
// applications are final.
func ValidateStatusTransition(from, to models.ApplicationStatus) error {
	if !to.Valid() {
		return appErrors.Validation(fmt.Sprintf("invalid application status: %s", to))
	}
	if from.Terminal() && from != to {
		return appErrors.Validation(fmt.Sprintf("Application status is final: %s", from))
	}
	return nil
}
