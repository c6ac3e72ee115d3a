package pipeline

import "github.com/noah-isme/job-portal-api/internal/models"

var (
	seekerOnly   = []models.UserRole{models.RoleJobSeeker}
	employerOnly = []models.UserRole{models.RoleEmployer}
)

// JobRegistry lists the job posting columns an employer may update.
var JobRegistry = NewRegistry("jobs",
	FieldSpec{Name: "title", Kind: KindString, Rule: "min=1,max=255"},
	FieldSpec{Name: "description", Kind: KindString, Rule: "min=1"},
	FieldSpec{Name: "requirements", Kind: KindString},
	FieldSpec{Name: "responsibilities", Kind: KindString},
	FieldSpec{Name: "job_type", Kind: KindString, Rule: "oneof=full_time part_time contract internship remote"},
	FieldSpec{Name: "location", Kind: KindString, Rule: "max=255"},
	FieldSpec{Name: "salary_min", Kind: KindDecimal, Rule: "gte=0", Nullable: true},
	FieldSpec{Name: "salary_max", Kind: KindDecimal, Rule: "gte=0", Nullable: true},
	FieldSpec{Name: "salary_currency", Kind: KindString, Rule: "max=10"},
	FieldSpec{Name: "experience_required", Kind: KindString, Rule: "max=100"},
	FieldSpec{Name: "education_required", Kind: KindString, Rule: "max=255"},
	FieldSpec{Name: "application_deadline", Kind: KindDate, Nullable: true},
	FieldSpec{Name: "positions_available", Kind: KindInteger, Rule: "gte=1"},
	FieldSpec{Name: "is_active", Kind: KindBoolean},
	FieldSpec{Name: "skills_required", Kind: KindStringList},
)

// ProfileRegistry lists the profile columns, scoped by role.
var ProfileRegistry = NewRegistry("users",
	FieldSpec{Name: "full_name", Kind: KindString, Rule: "min=1,max=255"},
	FieldSpec{Name: "phone", Kind: KindString, Rule: "max=50"},
	FieldSpec{Name: "skills", Roles: seekerOnly, Kind: KindStringList},
	FieldSpec{Name: "experience_years", Roles: seekerOnly, Kind: KindInteger, Rule: "gte=0,lte=80", Nullable: true},
	FieldSpec{Name: "education", Roles: seekerOnly, Kind: KindString},
	FieldSpec{Name: "bio", Roles: seekerOnly, Kind: KindString},
	FieldSpec{Name: "company_name", Roles: employerOnly, Kind: KindString, Rule: "min=1,max=255"},
	FieldSpec{Name: "company_website", Roles: employerOnly, Kind: KindString, Rule: "omitempty,url"},
	FieldSpec{Name: "company_description", Roles: employerOnly, Kind: KindString},
)

// PasswordRegistry holds the single column written by a password change.
var PasswordRegistry = NewRegistry("users",
	FieldSpec{Name: "password_hash", Kind: KindString, Rule: "min=1"},
)

// UploadSlot describes a file field accepted on the profile endpoint.
type UploadSlot struct {
	Field    string
	Column   string
	Category string
	Dir      string
	Roles    []models.UserRole
	Resume   bool
}

// ProfileUploads lists the file fields of the profile endpoint in the order
// they are processed. Resume slots use the resume limits, the others the
// image limits.
var ProfileUploads = []UploadSlot{
	{Field: "resume", Column: "resume_path", Category: "resume", Dir: "resumes", Roles: seekerOnly, Resume: true},
	{Field: "profile_picture", Column: "profile_picture", Category: "profile", Dir: "profiles", Roles: seekerOnly},
	{Field: "company_logo", Column: "company_logo", Category: "logo", Dir: "logos", Roles: employerOnly},
}

// SlotsFor returns the upload slots role may use.
func SlotsFor(role models.UserRole) []UploadSlot {
	out := make([]UploadSlot, 0, len(ProfileUploads))
	for _, s := range ProfileUploads {
		for _, r := range s.Roles {
			if r == role {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// ApplicationReviewRegistry holds the column an employer changes when
// reviewing an application.
var ApplicationReviewRegistry = NewRegistry("applications",
	FieldSpec{Name: "status", Kind: KindString, Rule: "oneof=pending reviewing shortlisted accepted rejected"},
)
