package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("test-jwt-secret")
	refreshSecret = []byte("test-refresh-secret")
)

func signRaw(t *testing.T, claims jwt.Claims, secret []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	token, err := IssueAccessToken(userID, accessSecret)
	require.NoError(t, err)

	claims := VerifyAccessToken(token, accessSecret)
	require.NotNil(t, claims)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, AccessTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestIssueRefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	rt, err := IssueRefreshToken(userID, refreshSecret)
	require.NoError(t, err)
	require.NotEmpty(t, rt.Token)
	require.NotEmpty(t, rt.JTI)

	claims := VerifyRefreshToken(rt.Token, refreshSecret)
	require.NotNil(t, claims)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, TypeRefresh, claims.Type)
	assert.Equal(t, rt.JTI, claims.ID)
	assert.True(t, rt.ExpiresAt.Equal(claims.ExpiresAt.Time))
	assert.WithinDuration(t, time.Now().Add(RefreshTTL), rt.ExpiresAt, 2*time.Second)
}

func TestVerify_TypeDiscrimination(t *testing.T) {
	t.Parallel()

	shared := []byte("same-secret-for-both")
	userID := uuid.NewString()

	access, err := IssueAccessToken(userID, shared)
	require.NoError(t, err)
	refresh, err := IssueRefreshToken(userID, shared)
	require.NoError(t, err)

	assert.Nil(t, VerifyRefreshToken(access, shared))
	assert.Nil(t, VerifyAccessToken(refresh.Token, shared))

	assert.NotNil(t, VerifyAccessToken(access, shared))
	assert.NotNil(t, VerifyRefreshToken(refresh.Token, shared))
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	access, err := IssueAccessToken(userID, accessSecret)
	require.NoError(t, err)
	refresh, err := IssueRefreshToken(userID, refreshSecret)
	require.NoError(t, err)

	for _, secret := range [][]byte{refreshSecret, []byte("x"), nil} {
		assert.Nil(t, VerifyAccessToken(access, secret))
	}
	for _, secret := range [][]byte{accessSecret, []byte("x"), nil} {
		assert.Nil(t, VerifyRefreshToken(refresh.Token, secret))
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not-a-valid-jwt", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30."} {
		assert.Nil(t, VerifyAccessToken(raw, accessSecret), raw)
		assert.Nil(t, VerifyRefreshToken(raw, refreshSecret), raw)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	expired := signRaw(t, &Claims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ID:        NewJTI(),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}, refreshSecret)

	assert.Nil(t, VerifyRefreshToken(expired, refreshSecret))
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	now := time.Now()
	claims := &Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ID:        NewJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(accessSecret)
	require.NoError(t, err)
	assert.Nil(t, VerifyAccessToken(hs512, accessSecret))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Nil(t, VerifyAccessToken(none, accessSecret))
}

func TestVerifyRefreshToken_RejectsIncompletePayload(t *testing.T) {
	t.Parallel()

	now := time.Now()
	base := jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": TypeRefresh,
		"jti":  NewJTI(),
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
	require.NotNil(t, VerifyRefreshToken(signRaw(t, base, refreshSecret), refreshSecret))

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{name: "missing jti", mutate: func(m jwt.MapClaims) { delete(m, "jti") }},
		{name: "missing sub", mutate: func(m jwt.MapClaims) { delete(m, "sub") }},
		{name: "missing iat", mutate: func(m jwt.MapClaims) { delete(m, "iat") }},
		{name: "missing exp", mutate: func(m jwt.MapClaims) { delete(m, "exp") }},
		{name: "missing type", mutate: func(m jwt.MapClaims) { delete(m, "type") }},
		{name: "numeric sub", mutate: func(m jwt.MapClaims) { m["sub"] = 42 }},
		{name: "numeric jti", mutate: func(m jwt.MapClaims) { m["jti"] = 42 }},
		{name: "type not a string", mutate: func(m jwt.MapClaims) { m["type"] = true }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims := jwt.MapClaims{}
			for k, v := range base {
				claims[k] = v
			}
			tt.mutate(claims)

			assert.Nil(t, VerifyRefreshToken(signRaw(t, claims, refreshSecret), refreshSecret))
		})
	}
}

func TestIssueRefreshToken_UniqueJTI(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		rt, err := IssueRefreshToken(userID, refreshSecret)
		require.NoError(t, err)
		_, dup := seen[rt.JTI]
		require.False(t, dup, "duplicate jti after %d tokens", i)
		seen[rt.JTI] = struct{}{}
	}
}

func TestHashJTI(t *testing.T) {
	t.Parallel()

	x, y := NewJTI(), NewJTI()
	assert.Equal(t, HashJTI(x), HashJTI(x))
	assert.NotEqual(t, HashJTI(x), HashJTI(y))
	assert.NotEqual(t, x, HashJTI(x))
	assert.NotContains(t, HashJTI(x), "=")
	assert.Len(t, HashJTI(x), 43)
}
