package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name   string
		userID uint
		email  string
		role   string
	}{
		{name: "Customer token", userID: 1, email: "buyer@example.com", role: "customer"},
		{name: "Admin token", userID: 2, email: "admin@example.com", role: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, claims, err := GenerateToken(tt.userID, tt.email, tt.role, testSecret, 15*time.Minute)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			require.NotNil(t, claims)
			assert.NotEmpty(t, claims.ID)
			assert.Equal(t, tt.role, claims.Role)
		})
	}
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	_, first, err := GenerateToken(1, "a@example.com", "customer", testSecret, time.Minute)
	require.NoError(t, err)
	_, second, err := GenerateToken(1, "a@example.com", "customer", testSecret, time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestValidateToken(t *testing.T) {
	token, _, err := GenerateToken(123, "buyer@example.com", "customer", testSecret, 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "Valid token", token: token, secret: testSecret},
		{name: "Wrong secret", token: token, secret: "wrong-secret", wantErr: ErrInvalidToken},
		{name: "Malformed token", token: "invalid.token.format", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty token", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(123), claims.UserID)
			assert.Equal(t, "buyer@example.com", claims.Email)
			assert.Equal(t, "customer", claims.Role)
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	token, _, err := GenerateToken(1, "buyer@example.com", "customer", testSecret, time.Nanosecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := ValidateToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestClaims_RemainingTTL(t *testing.T) {
	_, claims, err := GenerateToken(1, "buyer@example.com", "customer", testSecret, time.Hour)
	require.NoError(t, err)

	ttl := claims.RemainingTTL(time.Now())
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	assert.Zero(t, claims.RemainingTTL(time.Now().Add(2*time.Hour)))
}
