package models

import "time"

// ApplicationStatus is the review state of a job application.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationReviewing   ApplicationStatus = "reviewing"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationReviewing, ApplicationShortlisted, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

// Terminal reports whether s is a final decision.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// Application links a job seeker to a job.
type Application struct {
	ID          string            `db:"id" json:"id"`
	JobID       string            `db:"job_id" json:"job_id"`
	ApplicantID string            `db:"applicant_id" json:"applicant_id"`
	CoverLetter *string           `db:"cover_letter" json:"cover_letter,omitempty"`
	ResumePath  *string           `db:"resume_path" json:"resume_path,omitempty"`
	Status      ApplicationStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail joins an application with the job and applicant columns
// shown in listings and exports.
type ApplicationDetail struct {
	Application
	JobTitle       string  `db:"job_title" json:"job_title"`
	EmployerID     string  `db:"employer_id" json:"employer_id"`
	ApplicantName  string  `db:"applicant_name" json:"applicant_name"`
	ApplicantEmail string  `db:"applicant_email" json:"applicant_email"`
	ApplicantPhone *string `db:"applicant_phone" json:"applicant_phone,omitempty"`
}

// ApplicationState is the locked view of an application used by withdrawal
// and review decisions.
type ApplicationState struct {
	ID          string            `db:"id"`
	ApplicantID string            `db:"applicant_id"`
	EmployerID  string            `db:"employer_id"`
	Status      ApplicationStatus `db:"status"`
}
