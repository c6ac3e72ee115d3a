package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("secret", "job-portal")
	now := time.Now().UTC()
	sess := &Session{ID: "sid-1", UserID: "user-1", Role: "employer", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	token, err := codec.Encode(sess)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "employer", claims.Role)
}

func TestCodecRejectsForeignAndExpiredTokens(t *testing.T) {
	codec := NewCodec("secret", "job-portal")
	now := time.Now().UTC()

	other, err := NewCodec("other", "job-portal").Encode(&Session{ID: "s", UserID: "u", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = codec.Decode(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := codec.Encode(&Session{ID: "s", UserID: "u", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = codec.Decode(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: "s"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	a, err := store.Create(ctx, "user-1", "job_seeker")
	require.NoError(t, err)
	b, err := store.Create(ctx, "user-1", "job_seeker")
	require.NoError(t, err)
	c, err := store.Create(ctx, "user-2", "employer")
	require.NoError(t, err)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	require.NoError(t, store.DestroyAllForUser(ctx, "user-1", a.ID))
	_, err = store.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, a.ID)
	assert.NoError(t, err)
	_, err = store.Get(ctx, c.ID)
	assert.NoError(t, err)

	require.NoError(t, store.Destroy(ctx, a.ID))
	_, err = store.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	sess, err := store.Create(ctx, "user-1", "admin")
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
