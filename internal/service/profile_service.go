package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	"github.com/noah-isme/job-portal-api/pkg/config"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/storage"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, m *pipeline.Mutation) (time.Time, models.ProfileFiles, error)
}

type uploadAcceptor interface {
	Accept(ctx context.Context, actorID string, fd pipeline.FileDescriptor, c pipeline.UploadConstraints) (*pipeline.UploadOutcome, error)
	Commit(outcomes []*pipeline.UploadOutcome)
	Discard(outcomes []*pipeline.UploadOutcome)
}

type downloadSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string) (string, string, error)
}

// ProfileService implements the profile read and partial update use cases.
type ProfileService struct {
	users     profileRepository
	uploads   uploadAcceptor
	signer    downloadSigner
	limits    config.UploadsConfig
	apiPrefix string
	audit     auditRecorder
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(users profileRepository, uploads uploadAcceptor, signer downloadSigner, limits config.UploadsConfig, apiPrefix string, audit auditRecorder, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, uploads: uploads, signer: signer, limits: limits, apiPrefix: apiPrefix, audit: audit, logger: logger}
}

// Get returns the caller's profile with signed links to its stored files.
func (s *ProfileService) Get(ctx context.Context, rc pipeline.RequestContext) (*dto.ProfileResponse, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "You must be logged in to view profile")
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load profile")
	}

	files := models.ProfileFiles{ResumePath: user.ResumePath, ProfilePicture: user.ProfilePicture, CompanyLogo: user.CompanyLogo}
	links := make(map[string]dto.FileLink)
	for column, relPath := range files.ByColumn() {
		token, expiresAt, err := s.signer.Generate(user.ID, relPath)
		if err != nil {
			s.logger.Warn("download link not signed", zap.String("column", column), zap.Error(err))
			continue
		}
		links[column] = dto.FileLink{URL: s.downloadURL(token), ExpiresAt: expiresAt}
	}
	return &dto.ProfileResponse{User: user, Files: links}, nil
}

// Update applies the role scoped profile fields and uploaded files in one
// row update. New files are stored first; the files they replace are only
// removed once the update committed, and new files are removed again when
// it did not.
func (s *ProfileService) Update(ctx context.Context, rc pipeline.RequestContext) (*dto.UpdateResult, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "You must be logged in to update profile")
	}

	m, err := pipeline.Collect(pipeline.ProfileRegistry, actor.ID, actor.Role, rc.Fields)
	if err != nil {
		return nil, err
	}

	var outcomes []*pipeline.UploadOutcome
	for _, slot := range pipeline.SlotsFor(actor.Role) {
		fd, ok := rc.Files[slot.Field]
		if !ok {
			continue
		}
		outcome, err := s.uploads.Accept(ctx, actor.ID, fd, s.constraintsFor(slot))
		if err != nil {
			s.uploads.Discard(outcomes)
			return nil, err
		}
		outcomes = append(outcomes, outcome)
		m.Set(slot.Column, outcome.StoredPath)
	}
	if m.Empty() {
		return nil, pipeline.ErrNoFields
	}

	updatedAt, previous, err := s.users.UpdateProfile(ctx, m)
	if err != nil {
		s.uploads.Discard(outcomes)
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, err
	}

	prevByColumn := previous.ByColumn()
	for _, o := range outcomes {
		o.ReplacedPath = prevByColumn[o.Column]
	}
	s.uploads.Commit(outcomes)

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.ID,
			Action:     models.AuditActionUpdate,
			Resource:   "profile",
			ResourceID: &actor.ID,
			NewValues:  marshalAuditValues(map[string]any{"fields": m.Fields()}),
		}); err != nil {
			s.logger.Warn("failed to record profile audit log", zap.Error(err))
		}
	}
	return &dto.UpdateResult{ID: actor.ID, UpdatedAt: updatedAt}, nil
}

// ResolveDownload validates a download token and returns the stored path.
func (s *ProfileService) ResolveDownload(token string) (string, error) {
	_, relPath, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	return relPath, nil
}

func (s *ProfileService) constraintsFor(slot pipeline.UploadSlot) pipeline.UploadConstraints {
	c := pipeline.UploadConstraints{
		Field:             slot.Field,
		Column:            slot.Column,
		Category:          slot.Category,
		Dir:               slot.Dir,
		MaxBytes:          s.limits.ImageMaxBytes,
		AllowedExtensions: s.limits.ImageExtensions,
	}
	if slot.Resume {
		c.MaxBytes = s.limits.ResumeMaxBytes
		c.AllowedExtensions = s.limits.ResumeExtensions
	}
	return c
}

func (s *ProfileService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.apiPrefix, "/")
	return prefix + "/files/download?token=" + url.QueryEscape(token)
}
