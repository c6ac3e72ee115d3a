package models

import "time"

// JobType enumerates employment types accepted for postings.
type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeRemote     JobType = "remote"
)

// Job is a posting owned by an employer.
type Job struct {
	ID                  string     `db:"id" json:"id"`
	EmployerID          string     `db:"employer_id" json:"employer_id"`
	Title               string     `db:"title" json:"title"`
	Description         string     `db:"description" json:"description"`
	Requirements        *string    `db:"requirements" json:"requirements,omitempty"`
	Responsibilities    *string    `db:"responsibilities" json:"responsibilities,omitempty"`
	JobType             *string    `db:"job_type" json:"job_type,omitempty"`
	Location            *string    `db:"location" json:"location,omitempty"`
	SalaryMin           *float64   `db:"salary_min" json:"salary_min,omitempty"`
	SalaryMax           *float64   `db:"salary_max" json:"salary_max,omitempty"`
	SalaryCurrency      *string    `db:"salary_currency" json:"salary_currency,omitempty"`
	ExperienceRequired  *string    `db:"experience_required" json:"experience_required,omitempty"`
	EducationRequired   *string    `db:"education_required" json:"education_required,omitempty"`
	ApplicationDeadline *time.Time `db:"application_deadline" json:"application_deadline,omitempty"`
	PositionsAvailable  int        `db:"positions_available" json:"positions_available"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	SkillsRequired      *string    `db:"skills_required" json:"skills_required,omitempty"`
	CompanyName         *string    `db:"company_name" json:"company_name,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// OpenAt reports whether the job accepts applications at now. The deadline
// day itself is still open.
func (j *Job) OpenAt(now time.Time) bool {
	if !j.IsActive {
		return false
	}
	if j.ApplicationDeadline == nil {
		return true
	}
	d := j.ApplicationDeadline.UTC()
	end := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return now.UTC().Before(end)
}

// JobFilter captures filtering criteria for the public job listing.
type JobFilter struct {
	Search   string `form:"search"`
	Location string `form:"location"`
	JobType  string `form:"job_type"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
