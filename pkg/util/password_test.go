package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "Valid password", password: "lavender-fields"},
		{name: "Exactly minimum", password: "12345678"},
		{name: "Too short", password: "short", wantErr: ErrPasswordTooShort},
		{name: "Too long", password: strings.Repeat("x", MaxPasswordBytes+1), wantErr: ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.True(t, strings.HasPrefix(hash, "$2a$"))
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("vanilla-bean-42")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "vanilla-bean-42"))
	assert.False(t, VerifyPassword(hash, "vanilla-bean-43"))
	assert.False(t, VerifyPassword(hash, ""))
	assert.False(t, VerifyPassword("not-a-hash", "vanilla-bean-42"))
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := HashPassword("sandalwood")
	require.NoError(t, err)
	second, err := HashPassword("sandalwood")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword(first, "sandalwood"))
	assert.True(t, VerifyPassword(second, "sandalwood"))
}
