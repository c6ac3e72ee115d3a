package dto

import "time"

// CreateJobRequest defines the payload for posting a job.
type CreateJobRequest struct {
	Title               string   `json:"title" validate:"required,max=255"`
	Description         string   `json:"description" validate:"required"`
	Requirements        *string  `json:"requirements"`
	Responsibilities    *string  `json:"responsibilities"`
	JobType             *string  `json:"job_type" validate:"omitempty,oneof=full_time part_time contract internship remote"`
	Location            *string  `json:"location" validate:"omitempty,max=255"`
	SalaryMin           *float64 `json:"salary_min" validate:"omitempty,gte=0"`
	SalaryMax           *float64 `json:"salary_max" validate:"omitempty,gte=0"`
	SalaryCurrency      *string  `json:"salary_currency" validate:"omitempty,max=10"`
	ExperienceRequired  *string  `json:"experience_required" validate:"omitempty,max=100"`
	EducationRequired   *string  `json:"education_required" validate:"omitempty,max=255"`
	ApplicationDeadline *string  `json:"application_deadline" validate:"omitempty,datetime=2006-01-02"`
	PositionsAvailable  *int     `json:"positions_available" validate:"omitempty,gte=1"`
	SkillsRequired      []string `json:"skills_required"`
}

// UpdateResult is returned by partial updates. UpdatedAt doubles as the
// revision marker of the row.
type UpdateResult struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}
