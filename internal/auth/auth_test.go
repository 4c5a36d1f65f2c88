package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	// Minimum cost keeps the test fast; production uses 12.
	hash, err := HashPassword("Correct-Horse1", 4)
	require.NoError(t, err)
	assert.NotContains(t, hash, "Correct-Horse1")

	assert.NoError(t, VerifyPassword("Correct-Horse1", hash))
	assert.ErrorIs(t, VerifyPassword("wrong", hash), ErrInvalidCredentials)
	assert.ErrorIs(t, VerifyPassword("Correct-Horse1", "not-a-bcrypt-hash"), ErrInvalidCredentials)
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"good", "Str0ngEnough", true},
		{"too short", "Ab1", false},
		{"no digit", "NoDigitsHere", false},
		{"no upper", "alllower123", false},
		{"no lower", "ALLUPPER123", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice_dev-1"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("has space"))
	assert.Error(t, ValidateUsername("dots.not.allowed"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("two@@example.com"))
}

func TestTokenManager(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	m := NewTokenManager(secret, time.Hour)
	userID := uuid.New()

	t.Run("round trip", func(t *testing.T) {
		token, expiresAt, err := m.Issue(userID)
		require.NoError(t, err)
		assert.True(t, expiresAt.After(time.Now()))

		got, err := m.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, _, err := m.Issue(userID)
		require.NoError(t, err)

		other := NewTokenManager([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
		_, err = other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		past := NewTokenManager(secret, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.Issue(userID)
		require.NoError(t, err)

		_, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := m.Verify("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestStateStore(t *testing.T) {
	store := NewStateStore(100 * time.Millisecond)
	defer store.Stop()

	t.Run("single use", func(t *testing.T) {
		state, err := store.Issue()
		require.NoError(t, err)
		assert.Len(t, state, 64)

		assert.True(t, store.Consume(state))
		assert.False(t, store.Consume(state), "state must be single-use")
	})

	t.Run("unknown state rejected", func(t *testing.T) {
		assert.False(t, store.Consume("never-issued"))
	})

	t.Run("expired state rejected", func(t *testing.T) {
		state, err := store.Issue()
		require.NoError(t, err)
		time.Sleep(150 * time.Millisecond)
		assert.False(t, store.Consume(state))
	})
}
