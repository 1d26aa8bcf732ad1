package encrypt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := map[string]bool{
		"short1!":       false,
		"nouppercase1!": false,
		"NoDigitsHere!": false,
		"NoSpecial123":  false,
		"Str0ng!Pass":   true,
	}
	for pw, ok := range cases {
		err := ValidatePasswordStrength(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.True(t, errors.Is(err, ErrWeakPassword), pw)
		}
	}
}

func TestHashAndCheck(t *testing.T) {
	hash, err := HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!Pass", hash)

	assert.NoError(t, CheckPassword(hash, "Str0ng!Pass"))
	assert.ErrorIs(t, CheckPassword(hash, "Wr0ng!Pass"), ErrPasswordMismatch)

	_, err = HashPassword("weak")
	assert.ErrorIs(t, err, ErrWeakPassword)
}
