package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Issue(Identity{UserID: "user-1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.True(t, identity.IsAdmin())
}

func TestVerifier_DefaultsToPatientRole(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Issue(Identity{UserID: "user-2"}, time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RolePatient, identity.Role)
	assert.False(t, identity.IsAdmin())
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("test-secret")

	expired, err := v.Issue(Identity{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)

	otherSecret, err := NewVerifier("other-secret").Issue(Identity{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	noID, err := v.Issue(Identity{}, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong secret", otherSecret, ErrInvalidToken},
		{"missing id", noID, ErrInvalidToken},
		{"alg none", none, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_NoSecret(t *testing.T) {
	_, err := NewVerifier("").Verify("anything")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u", Role: RolePatient})
	identity, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", identity.UserID)
}
