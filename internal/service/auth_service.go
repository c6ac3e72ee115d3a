package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	"github.com/noah-isme/job-portal-api/internal/repository"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/hash"
	"github.com/noah-isme/job-portal-api/pkg/session"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ApplyMutation(ctx context.Context, m *pipeline.Mutation) (time.Time, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthService provides registration, login and session use cases.
type AuthService struct {
	users     authUserRepository
	audit     auditRecorder
	sessions  session.Store
	codec     *session.Codec
	hasher    hash.PasswordHasher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, audit auditRecorder, sessions session.Store, codec *session.Codec, hasher hash.PasswordHasher, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if hasher == nil {
		hasher = hash.NewBcryptHasher(0)
	}
	return &AuthService{users: users, audit: audit, sessions: sessions, codec: codec, hasher: hasher, validator: validate, logger: logger}
}

// Register creates an account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest, meta dto.RequestMeta) (*dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if req.Role == models.RoleEmployer && (req.CompanyName == nil || strings.TrimSpace(*req.CompanyName) == "") {
		return nil, appErrors.Validation("company_name is required for employers")
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashed,
		Role:         req.Role,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        req.Phone,
	}
	if req.Role == models.RoleEmployer {
		user.CompanyName = req.CompanyName
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Email already registered")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &user.ID, models.AuditActionRegister, "auth", &user.ID, map[string]any{"role": user.Role}, meta)
	return resp, nil
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, meta dto.RequestMeta) (*dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &user.ID, models.AuditActionLogin, "auth", &user.ID, map[string]any{"status": "success"}, meta)
	return resp, nil
}

// Logout destroys the actor's session. Anonymous callers succeed too.
func (s *AuthService) Logout(ctx context.Context, actor *models.Actor, meta dto.RequestMeta) error {
	if actor == nil || actor.SessionID == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, actor.SessionID); err != nil {
		return appErrors.Internal(err, "failed to destroy session")
	}
	s.record(ctx, &actor.ID, models.AuditActionLogout, "auth", &actor.ID, map[string]any{"status": "logout"}, meta)
	return nil
}

// Me returns the account behind the actor.
func (s *AuthService) Me(ctx context.Context, rc pipeline.RequestContext) (*models.User, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// ChangePassword runs the password pipeline and revokes the actor's other
// sessions once the new hash is stored.
func (s *AuthService) ChangePassword(ctx context.Context, rc pipeline.RequestContext, req dto.ChangePasswordRequest, meta dto.RequestMeta) (*dto.UpdateResult, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	if err := pipeline.ValidatePasswordChange(req.CurrentPassword, req.NewPassword); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	m, err := pipeline.BuildPasswordMutation(user.ID, user.PasswordHash, req.CurrentPassword, req.NewPassword, s.hasher)
	if err != nil {
		return nil, err
	}
	updatedAt, err := s.users.ApplyMutation(ctx, m)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DestroyAllForUser(ctx, actor.ID, actor.SessionID); err != nil {
		s.logger.Warn("failed to revoke sessions after password change", zap.String("user_id", actor.ID), zap.Error(err))
	}
	s.record(ctx, &actor.ID, models.AuditActionPasswordChange, "auth", &actor.ID, map[string]any{"status": "changed"}, meta)

	return &dto.UpdateResult{ID: actor.ID, UpdatedAt: updatedAt}, nil
}

// Authenticate resolves a session token into the request actor.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Actor, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
		}
		return nil, appErrors.Internal(err, "failed to load session")
	}
	if sess.UserID != claims.Subject {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}
	return &models.Actor{ID: sess.UserID, Role: models.UserRole(sess.Role), SessionID: sess.ID}, nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	sess, err := s.sessions.Create(ctx, user.ID, string(user.Role))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create session")
	}
	token, err := s.codec.Encode(sess)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign session")
	}
	return &dto.AuthResponse{User: user.Info(), Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

func (s *AuthService) record(ctx context.Context, userID *string, action, resource string, resourceID *string, values map[string]any, meta dto.RequestMeta) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		NewValues:  marshalAuditValues(values),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
