package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleJobSeeker UserRole = "job_seeker"
	RoleEmployer  UserRole = "employer"
	RoleAdmin     UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleJobSeeker, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// User represents an account stored in the users table. Job seeker and
// employer specific columns are nullable and only populated for that role.
type User struct {
	ID           string   `db:"id" json:"id"`
	Email        string   `db:"email" json:"email"`
	PasswordHash string   `db:"password_hash" json:"-"`
	Role         UserRole `db:"role" json:"role"`
	FullName     string   `db:"full_name" json:"full_name"`
	Phone        *string  `db:"phone" json:"phone,omitempty"`

	Skills          *string `db:"skills" json:"skills,omitempty"`
	ExperienceYears *int    `db:"experience_years" json:"experience_years,omitempty"`
	Education       *string `db:"education" json:"education,omitempty"`
	Bio             *string `db:"bio" json:"bio,omitempty"`
	ResumePath      *string `db:"resume_path" json:"resume_path,omitempty"`
	ProfilePicture  *string `db:"profile_picture" json:"profile_picture,omitempty"`

	CompanyName        *string `db:"company_name" json:"company_name,omitempty"`
	CompanyWebsite     *string `db:"company_website" json:"company_website,omitempty"`
	CompanyDescription *string `db:"company_description" json:"company_description,omitempty"`
	CompanyLogo        *string `db:"company_logo" json:"company_logo,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public summary of an account returned by auth endpoints.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// Info returns the public summary of u.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ProfileFiles holds the upload paths stored on a user row.
type ProfileFiles struct {
	ResumePath     *string `db:"resume_path"`
	ProfilePicture *string `db:"profile_picture"`
	CompanyLogo    *string `db:"company_logo"`
}

// ByColumn returns the non-empty paths keyed by column name.
func (f ProfileFiles) ByColumn() map[string]string {
	out := make(map[string]string, 3)
	for col, p := range map[string]*string{
		"resume_path":     f.ResumePath,
		"profile_picture": f.ProfilePicture,
		"company_logo":    f.CompanyLogo,
	} {
		if p != nil && *p != "" {
			out[col] = *p
		}
	}
	return out
}
