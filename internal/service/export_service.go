package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/export"
)

// Export formats accepted by the applicant export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type applicationsByJob interface {
	Applications(ctx context.Context, rc pipeline.RequestContext, jobID string) ([]models.ApplicationDetail, error)
}

type renderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered export ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

var applicantColumns = []export.Column{
	{Key: "applicant_name", Label: "Applicant"},
	{Key: "applicant_email", Label: "Email"},
	{Key: "applicant_phone", Label: "Phone"},
	{Key: "status", Label: "Status"},
	{Key: "resume", Label: "Resume"},
	{Key: "applied_at", Label: "Applied At"},
}

// ExportService renders the applicants of a job as CSV or PDF.
type ExportService struct {
	source    applicationsByJob
	renderers map[string]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the default CSV and PDF exporters.
func NewExportService(source applicationsByJob, logger *zap.Logger, csv, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		source:    source,
		renderers: map[string]renderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
		now:       time.Now,
	}
}

// ExportApplicants renders the applicants of jobID. Access follows the job
// applications listing.
func (s *ExportService) ExportApplicants(ctx context.Context, rc pipeline.RequestContext, jobID, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Validation(fmt.Sprintf("unsupported export format: %s", format))
	}

	items, err := s.source.Applications(ctx, rc, jobID)
	if err != nil {
		return nil, err
	}

	title := "Applicants"
	if len(items) > 0 {
		title = "Applicants for " + items[0].JobTitle
	}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"applicant_name":  item.ApplicantName,
			"applicant_email": item.ApplicantEmail,
			"applicant_phone": deref(item.ApplicantPhone),
			"status":          string(item.Status),
			"resume":          deref(item.ResumePath),
			"applied_at":      item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	payload, err := r.Render(export.Dataset{Title: title, Columns: applicantColumns, Rows: rows})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("applicants exported", zap.String("job_id", jobID), zap.String("format", format), zap.Int("rows", len(rows)))

	return &ExportResult{
		Filename:    fmt.Sprintf("applicants_%s_%s.%s", sanitizeFilename(jobID), s.now().UTC().Format("20060102_150405"), r.Extension()),
		ContentType: r.ContentType(),
		Data:        payload,
	}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
