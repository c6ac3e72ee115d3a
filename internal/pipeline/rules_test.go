package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/pkg/hash"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

func salaryMutation(t *testing.T, raw RawFields) *Mutation {
	t.Helper()
	m, err := BuildMutation(JobRegistry, "job-1", models.RoleEmployer, raw)
	require.NoError(t, err)
	return m
}

func TestValidateSalaryRange(t *testing.T) {
	assert.Equal(t, ErrSalaryRange, ValidateSalaryRange(salaryMutation(t, RawFields{"salary_min": 50000, "salary_max": 40000})))
	assert.Equal(t, ErrSalaryRange, ValidateSalaryRange(salaryMutation(t, RawFields{"salary_min": "100.5", "salary_max": "100.49"})))

	assert.NoError(t, ValidateSalaryRange(salaryMutation(t, RawFields{"salary_min": 40000, "salary_max": 40000})))
	assert.NoError(t, ValidateSalaryRange(salaryMutation(t, RawFields{"salary_min": 40000, "salary_max": 50000})))
	assert.NoError(t, ValidateSalaryRange(salaryMutation(t, RawFields{"salary_max": 1})))
	assert.NoError(t, ValidateSalaryRange(salaryMutation(t, RawFields{"salary_min": 50000, "salary_max": ""})))
}

func TestValidatePasswordChange(t *testing.T) {
	assert.Equal(t, ErrPasswordRequired, ValidatePasswordChange("", "longenough"))
	assert.Equal(t, ErrPasswordRequired, ValidatePasswordChange("current", ""))
	assert.Equal(t, ErrPasswordTooShort, ValidatePasswordChange("current", "abcdefg"))
	assert.NoError(t, ValidatePasswordChange("current", "abcdefgh"))
	assert.Equal(t, ErrPasswordUnchanged, ValidatePasswordChange("abcdefgh", "abcdefgh"))
	assert.NoError(t, ValidatePasswordChange("current", "pässwörd"))
	assert.Equal(t, ErrPasswordTooLong, ValidatePasswordChange("current", string(make([]byte, 73))))
}

func TestBuildPasswordMutation(t *testing.T) {
	hasher := hash.NewBcryptHasher(bcrypt.MinCost)
	stored, err := hasher.Hash("old-password")
	require.NoError(t, err)

	_, err = BuildPasswordMutation("u1", stored, "wrong-password", "new-password", hasher)
	assert.Equal(t, ErrCurrentPasswordWrong, err)
	assert.NotEqual(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	m, err := BuildPasswordMutation("u1", stored, "old-password", "new-password", hasher)
	require.NoError(t, err)
	assert.Equal(t, []string{"password_hash"}, m.Fields())
	assert.Equal(t, "users", m.Table)
	assert.Equal(t, "u1", m.TargetID)

	v, _ := m.Value("password_hash")
	newHash := v.(string)
	assert.True(t, hasher.Verify(newHash, "new-password"))
	assert.False(t, hasher.Verify(newHash, "old-password"))
}

func TestValidateWithdrawal(t *testing.T) {
	for _, s := range []models.ApplicationStatus{models.ApplicationAccepted, models.ApplicationRejected} {
		err := ValidateWithdrawal(s)
		require.Error(t, err)
		assert.Equal(t, "Cannot withdraw application with status: "+string(s), appErrors.FromError(err).Message)
	}
	for _, s := range []models.ApplicationStatus{models.ApplicationPending, models.ApplicationReviewing, models.ApplicationShortlisted, "submitted", ""} {
		assert.NoError(t, ValidateWithdrawal(s), s)
	}
}

func TestCheckOwnership(t *testing.T) {
	owner := &models.Actor{ID: "u1", Role: models.RoleEmployer}
	other := &models.Actor{ID: "u2", Role: models.RoleEmployer}
	admin := &models.Actor{ID: "a1", Role: models.RoleAdmin}

	assert.NoError(t, CheckOwnership(owner, "u1"))
	assert.Equal(t, ErrNotOwned, CheckOwnership(other, "u1"))
	assert.Equal(t, ErrNotOwned, CheckOwnership(admin, "u1"))
	assert.NoError(t, CheckOwnership(admin, "u1", models.RoleAdmin))
	assert.Equal(t, ErrNotOwned, CheckOwnership(owner, ""))
	assert.Equal(t, appErrors.ErrUnauthorized, CheckOwnership(nil, "u1"))
}

func TestValidateStatusTransition(t *testing.T) {
	assert.NoError(t, ValidateStatusTransition(models.ApplicationPending, models.ApplicationReviewing))
	assert.NoError(t, ValidateStatusTransition(models.ApplicationShortlisted, models.ApplicationAccepted))
	assert.NoError(t, ValidateStatusTransition(models.ApplicationAccepted, models.ApplicationAccepted))
	assert.Error(t, ValidateStatusTransition(models.ApplicationAccepted, models.ApplicationRejected))
	assert.Error(t, ValidateStatusTransition(models.ApplicationPending, "hired"))
}

func TestRequestContextRequireActor(t *testing.T) {
	_, err := RequestContext{}.RequireActor()
	assert.Equal(t, appErrors.ErrUnauthorized, err)

	actor, err := RequestContext{Actor: &models.Actor{ID: "u1", Role: models.RoleJobSeeker}}.RequireActor()
	require.NoError(t, err)
	assert.Equal(t, "u1", actor.ID)
}
