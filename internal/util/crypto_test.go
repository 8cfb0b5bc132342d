package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _ := GenerateToken()
		token2, _ := GenerateToken()
		assert.NotEqual(t, token1, token2)
	})

	t.Run("generates valid hex", func(t *testing.T) {
		token, _ := GenerateToken()
		for _, c := range token {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
		}
	})
}

func TestHmacSHA256(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		result := HmacSHA256("secret", "data")
		assert.Len(t, result, 64)
	})

	t.Run("same inputs produce same result", func(t *testing.T) {
		result1 := HmacSHA256("secret", "data")
		result2 := HmacSHA256("secret", "data")
		assert.Equal(t, result1, result2)
	})

	t.Run("different secrets produce different results", func(t *testing.T) {
		result1 := HmacSHA256("secret1", "data")
		result2 := HmacSHA256("secret2", "data")
		assert.NotEqual(t, result1, result2)
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
}

func TestCheckPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("hunter2hunter2", string(hash)))
	assert.False(t, CheckPasswordHash("wrong", string(hash)))
}

func TestMaskCode(t *testing.T) {
	assert.Equal(t, "ABCD****", MaskCode("ABCD2345"))
	assert.Equal(t, "****", MaskCode("AB"))
}
