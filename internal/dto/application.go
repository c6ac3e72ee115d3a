package dto

// ApplyRequest defines the payload for applying to a job.
type ApplyRequest struct {
	JobID       string  `json:"job_id" validate:"required"`
	CoverLetter *string `json:"cover_letter" validate:"omitempty,max=10000"`
}

// UpdateApplicationStatusRequest defines the payload of an employer review.
type UpdateApplicationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
