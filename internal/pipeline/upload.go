package pipeline

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

// FileDescriptor is an uploaded file as received from the client.
type FileDescriptor struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// FromMultipart adapts a multipart file header.
func FromMultipart(fh *multipart.FileHeader) FileDescriptor {
	return FileDescriptor{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// UploadConstraints bound one file field.
type UploadConstraints struct {
	Field             string
	Column            string
	Category          string
	Dir               string
	MaxBytes          int64
	AllowedExtensions []string
}

// UploadOutcome records where an accepted file was stored and which file it
// replaces once the row update commits.
type UploadOutcome struct {
	Field        string
	Column       string
	StoredPath   string
	ReplacedPath string
}

// BlobStore is the file storage used for uploads.
type BlobStore interface {
	Write(relPath string, r io.Reader) (int64, error)
	Delete(relPath string) error
	Exists(relPath string) bool
}

// CleanupScheduler retries deletions that failed inline.
type CleanupScheduler interface {
	ScheduleDelete(relPath, reason string) error
}

// UploadObserver receives upload outcomes, e.g. for metrics.
type UploadObserver interface {
	ObserveUpload(field, outcome string)
}

// Uploader validates, names and stores uploaded files and removes the files
// they replace after the owning row has been updated.
type Uploader struct {
	store    BlobStore
	cleanup  CleanupScheduler
	observer UploadObserver
	logger   *zap.Logger
	newID    func() string
}

// UploaderOption customises an Uploader.
type UploaderOption func(*Uploader)

// WithCleanupScheduler hands failed deletions to s.
func WithCleanupScheduler(s CleanupScheduler) UploaderOption {
	return func(u *Uploader) { u.cleanup = s }
}

// WithUploadObserver reports outcomes to o.
func WithUploadObserver(o UploadObserver) UploaderOption {
	return func(u *Uploader) { u.observer = o }
}

// NewUploader constructs an Uploader over store.
func NewUploader(store BlobStore, logger *zap.Logger, opts ...UploaderOption) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &Uploader{store: store, logger: logger, newID: func() string { return ksuid.New().String() }}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Accept validates fd against c and stores it under c.Dir as
// {category}_{actorID}_{id}.{ext}. The size limit is inclusive and also
// enforced on the bytes actually read.
func (u *Uploader) Accept(ctx context.Context, actorID string, fd FileDescriptor, c UploadConstraints) (*UploadOutcome, error) {
	if fd.Size > c.MaxBytes {
		u.observe(c.Field, "too_large")
		return nil, fileTooLarge(c.MaxBytes)
	}
	ext := extensionOf(fd.Filename)
	if !allowed(ext, c.AllowedExtensions) {
		u.observe(c.Field, "invalid_type")
		return nil, appErrors.Validation("Invalid file type. Allowed types: " + strings.Join(c.AllowedExtensions, ", "))
	}
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Internal(err, "upload cancelled")
	}

	src, err := fd.Open()
	if err != nil {
		u.observe(c.Field, "error")
		return nil, appErrors.Internal(err, "failed to read upload")
	}
	defer src.Close() //nolint:errcheck

	relPath := fmt.Sprintf("%s/%s_%s_%s.%s", c.Dir, c.Category, actorID, u.newID(), ext)
	written, err := u.store.Write(relPath, io.LimitReader(src, c.MaxBytes+1))
	if err != nil {
		u.observe(c.Field, "error")
		return nil, appErrors.Internal(err, "failed to store upload")
	}
	if written > c.MaxBytes {
		u.remove(relPath, "oversized upload")
		u.observe(c.Field, "too_large")
		return nil, fileTooLarge(c.MaxBytes)
	}

	u.observe(c.Field, "stored")
	u.logger.Debug("upload stored",
		zap.String("field", c.Field),
		zap.String("actor_id", actorID),
		zap.String("path", relPath),
		zap.Int64("bytes", written),
	)
	return &UploadOutcome{Field: c.Field, Column: c.Column, StoredPath: relPath}, nil
}

// Commit removes the files replaced by outcomes. It runs after the row
// update committed; failures are logged and handed to the cleanup
// scheduler, never returned.
func (u *Uploader) Commit(outcomes []*UploadOutcome) {
	for _, o := range outcomes {
		if o == nil || o.ReplacedPath == "" || o.ReplacedPath == o.StoredPath {
			continue
		}
		u.remove(o.ReplacedPath, "replaced by "+o.Field)
	}
}

// Discard removes newly stored files after the row update failed.
func (u *Uploader) Discard(outcomes []*UploadOutcome) {
	for _, o := range outcomes {
		if o == nil || o.StoredPath == "" {
			continue
		}
		u.observe(o.Field, "discarded")
		u.remove(o.StoredPath, "row update failed")
	}
}

func (u *Uploader) remove(relPath, reason string) {
	err := u.store.Delete(relPath)
	if err == nil {
		return
	}
	u.logger.Warn("upload cleanup failed",
		zap.String("path", relPath),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if u.cleanup == nil {
		return
	}
	if err := u.cleanup.ScheduleDelete(relPath, reason); err != nil {
		u.logger.Error("upload cleanup not scheduled", zap.String("path", relPath), zap.Error(err))
	}
}

func (u *Uploader) observe(field, outcome string) {
	if u.observer != nil {
		u.observer.ObserveUpload(field, outcome)
	}
}

func extensionOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func allowed(ext string, exts []string) bool {
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

func fileTooLarge(max int64) error {
	const mib = 1024 * 1024
	if max >= mib && max%mib == 0 {
		return appErrors.Validation(fmt.Sprintf("File size must not exceed %dMB", max/mib))
	}
	return appErrors.Validation(fmt.Sprintf("File size must not exceed %d bytes", max))
}
