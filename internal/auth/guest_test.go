package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuestTokenService() *GuestTokenService {
	return NewGuestTokenService("test-secret-key-for-testing-purposes", 30*24*time.Hour)
}

func TestGuestTokenService_IssueAndVerify(t *testing.T) {
	service := newTestGuestTokenService()

	token, expiresAt, err := service.Issue("guest-123")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	guestID, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "guest-123", guestID)
}

func TestGuestTokenService_Verify_Expired(t *testing.T) {
	service := NewGuestTokenService("test-secret", 1*time.Millisecond)

	token, _, err := service.Issue("guest-123")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	guestID, err := service.Verify(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Empty(t, guestID)
}

func TestGuestTokenService_Verify_Invalid(t *testing.T) {
	service := newTestGuestTokenService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage token", "not-a-jwt"},
		{"truncated token", "eyJhbGciOiJIUzI1NiJ9.eyJndWVzdF9pZCI6Imd1ZXN0In0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guestID, err := service.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Empty(t, guestID)
		})
	}
}

func TestGuestTokenService_Verify_WrongSecret(t *testing.T) {
	issuer := NewGuestTokenService("secret-one", time.Hour)
	verifier := NewGuestTokenService("secret-two", time.Hour)

	token, _, err := issuer.Issue("guest-123")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
