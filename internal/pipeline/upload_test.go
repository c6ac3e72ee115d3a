package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

type memBlobStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	failWrite  bool
	failDelete map[string]bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{files: map[string][]byte{}, failDelete: map[string]bool{}}
}

func (s *memBlobStore) Write(relPath string, r io.Reader) (int64, error) {
	if s.failWrite {
		return 0, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.files[relPath] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *memBlobStore) Delete(relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[relPath] {
		return errors.New("permission denied")
	}
	delete(s.files, relPath)
	return nil
}

func (s *memBlobStore) Exists(relPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[relPath]
	return ok
}

type recordingScheduler struct{ paths []string }

func (r *recordingScheduler) ScheduleDelete(relPath, _ string) error {
	r.paths = append(r.paths, relPath)
	return nil
}

type countingObserver struct{ outcomes []string }

func (o *countingObserver) ObserveUpload(field, outcome string) {
	o.outcomes = append(o.outcomes, field+":"+outcome)
}

func file(name string, size int) FileDescriptor {
	body := bytes.Repeat([]byte("x"), size)
	return FileDescriptor{
		Filename: name,
		Size:     int64(size),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil },
	}
}

var resumeConstraints = UploadConstraints{
	Field:             "resume",
	Column:            "resume_path",
	Category:          "resume",
	Dir:               "resumes",
	MaxBytes:          1024,
	AllowedExtensions: []string{"pdf", "doc", "docx"},
}

func newTestUploader(store *memBlobStore, opts ...UploaderOption) *Uploader {
	u := NewUploader(store, nil, opts...)
	u.newID = func() string { return "ID1" }
	return u
}

func TestAcceptSizeBoundary(t *testing.T) {
	store := newMemBlobStore()
	u := newTestUploader(store)

	out, err := u.Accept(context.Background(), "u1", file("cv.pdf", 1024), resumeConstraints)
	require.NoError(t, err)
	assert.Equal(t, "resumes/resume_u1_ID1.pdf", out.StoredPath)
	assert.Equal(t, "resume_path", out.Column)
	assert.True(t, store.Exists(out.StoredPath))

	_, err = u.Accept(context.Background(), "u1", file("cv.pdf", 1025), resumeConstraints)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "File size must not exceed 1024 bytes", appErrors.FromError(err).Message)
}

func TestAcceptExtensionIsCaseInsensitive(t *testing.T) {
	store := newMemBlobStore()
	u := newTestUploader(store)

	out, err := u.Accept(context.Background(), "u1", file("CV.PDF", 10), resumeConstraints)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.StoredPath, ".pdf"))

	for _, name := range []string{"cv.exe", "cv", "cv.pdf.exe", ".pdf.sh"} {
		_, err := u.Accept(context.Background(), "u1", file(name, 10), resumeConstraints)
		require.Error(t, err, name)
		assert.Equal(t, "Invalid file type. Allowed types: pdf, doc, docx", appErrors.FromError(err).Message)
	}
}

func TestAcceptEnforcesLimitOnBytesRead(t *testing.T) {
	store := newMemBlobStore()
	obs := &countingObserver{}
	u := newTestUploader(store, WithUploadObserver(obs))

	lying := file("cv.pdf", 2048)
	lying.Size = 10
	_, err := u.Accept(context.Background(), "u1", lying, resumeConstraints)
	require.Error(t, err)
	assert.Empty(t, store.files)
	assert.Equal(t, []string{"resume:too_large"}, obs.outcomes)
}

func TestAcceptStorageFailure(t *testing.T) {
	store := newMemBlobStore()
	store.failWrite = true
	u := newTestUploader(store)

	_, err := u.Accept(context.Background(), "u1", file("cv.pdf", 10), resumeConstraints)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Status, appErrors.FromError(err).Status)
}

func TestAcceptNamesAreUnique(t *testing.T) {
	store := newMemBlobStore()
	u := NewUploader(store, nil)

	a, err := u.Accept(context.Background(), "u1", file("a.pdf", 1), resumeConstraints)
	require.NoError(t, err)
	b, err := u.Accept(context.Background(), "u1", file("a.pdf", 1), resumeConstraints)
	require.NoError(t, err)
	assert.NotEqual(t, a.StoredPath, b.StoredPath)
}

func TestCommitRemovesReplacedFiles(t *testing.T) {
	store := newMemBlobStore()
	store.files["resumes/old.pdf"] = []byte("old")
	store.files["profiles/old.png"] = []byte("old")
	store.files["resumes/new.pdf"] = []byte("new")
	store.failDelete["profiles/old.png"] = true
	sched := &recordingScheduler{}
	u := newTestUploader(store, WithCleanupScheduler(sched))

	u.Commit([]*UploadOutcome{
		{Field: "resume", StoredPath: "resumes/new.pdf", ReplacedPath: "resumes/old.pdf"},
		{Field: "profile_picture", StoredPath: "profiles/new.png", ReplacedPath: "profiles/old.png"},
		{Field: "company_logo", StoredPath: "logos/new.png"},
		nil,
	})

	assert.False(t, store.Exists("resumes/old.pdf"))
	assert.True(t, store.Exists("resumes/new.pdf"))
	assert.Equal(t, []string{"profiles/old.png"}, sched.paths)
}

func TestDiscardRemovesNewFilesOnly(t *testing.T) {
	store := newMemBlobStore()
	store.files["resumes/old.pdf"] = []byte("old")
	store.files["resumes/new.pdf"] = []byte("new")
	u := newTestUploader(store)

	u.Discard([]*UploadOutcome{{Field: "resume", StoredPath: "resumes/new.pdf", ReplacedPath: "resumes/old.pdf"}})

	assert.False(t, store.Exists("resumes/new.pdf"))
	assert.True(t, store.Exists("resumes/old.pdf"))
}

func TestSlotsFor(t *testing.T) {
	assert.Len(t, SlotsFor("job_seeker"), 2)
	assert.Len(t, SlotsFor("employer"), 1)
	assert.Empty(t, SlotsFor("admin"))
}
