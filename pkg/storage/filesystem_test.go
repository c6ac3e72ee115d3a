package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageWriteOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.Write("resumes/resume_u1_abc.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.True(t, store.Exists("resumes/resume_u1_abc.pdf"))

	f, err := store.Open("resumes/resume_u1_abc.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))

	require.NoError(t, store.Delete("resumes/resume_u1_abc.pdf"))
	assert.False(t, store.Exists("resumes/resume_u1_abc.pdf"))
	require.NoError(t, store.Delete("resumes/resume_u1_abc.pdf"))
}

func TestLocalStorageRefusesOverwrite(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Write("logos/a.png", bytes.NewReader([]byte{1}))
	require.NoError(t, err)
	_, err = store.Write("logos/a.png", bytes.NewReader([]byte{2}))
	require.Error(t, err)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"", "../etc/passwd", "/etc/passwd", "resumes/../../x", ".."} {
		_, err := store.Write(p, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, p)
		assert.False(t, store.Exists(p), p)
	}
}
