package hash

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	ctx := context.Background()

	hashed, err := h.Hash(ctx, "Pass123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Pass123!", hashed)

	assert.True(t, h.Verify(ctx, hashed, "Pass123!"))
	assert.False(t, h.Verify(ctx, hashed, "pass123!"))
	assert.False(t, h.Verify(ctx, "not-a-bcrypt-hash", "Pass123!"))
}

func TestBcrypt_DummyHash(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	first := h.DummyHash()
	require.NotEmpty(t, first)
	assert.Equal(t, first, h.DummyHash())

	cost, err := bcrypt.Cost([]byte(first))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.False(t, h.Verify(context.Background(), first, ""))
}

func TestNewBcrypt_PrecomputesDummyHash(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	require.NotEmpty(t, h.dummy)
	assert.Equal(t, h.dummy, h.DummyHash())
}

func TestBcrypt_PasswordTooLong(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	ctx := context.Background()

	_, err := h.Hash(ctx, strings.Repeat("a", MaxPasswordBytes+1))
	require.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = h.Hash(ctx, strings.Repeat("é", 40))
	require.ErrorIs(t, err, ErrPasswordTooLong)

	hashed, err := h.Hash(ctx, strings.Repeat("a", MaxPasswordBytes))
	require.NoError(t, err)
	assert.True(t, h.Verify(ctx, hashed, strings.Repeat("a", MaxPasswordBytes)))
}

func TestBcrypt_InvalidCostFallsBackToDefault(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(0)
	assert.Equal(t, bcrypt.DefaultCost, h.cost())
}

func TestBcrypt_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewBcrypt(bcrypt.MinCost)
	_, err := h.Hash(ctx, "Pass123!")
	require.ErrorIs(t, err, context.Canceled)
}
