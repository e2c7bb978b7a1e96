package lldapcli

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *Validator {
	return NewValidator(zerolog.Nop())
}

func TestValidator_ValidateLength(t *testing.T) {
	v := newTestValidator()

	t.Run("at the limit passes", func(t *testing.T) {
		require.NoError(t, v.ValidateLength(strings.Repeat("a", 64), "username", 64))
	})

	t.Run("over the limit fails", func(t *testing.T) {
		err := v.ValidateLength(strings.Repeat("a", 65), "username", 64)
		require.Error(t, err)
		require.Equal(t, KindValidation, KindOf(err))
		require.Contains(t, err.Error(), "username")
	})

	t.Run("empty passes", func(t *testing.T) {
		require.NoError(t, v.ValidateLength("", "anything", 10))
	})
}

func TestValidator_ValidateUsername(t *testing.T) {
	v := newTestValidator()

	t.Run("allowed characters", func(t *testing.T) {
		for _, name := range []string{"admin", "john.doe", "user_1", "a-b", "A9._-"} {
			require.NoError(t, v.ValidateUsername(name), name)
		}
	})

	t.Run("disallowed characters", func(t *testing.T) {
		for _, name := range []string{"john doe", "user!", "a@b", "naïve", "semi;colon", ""} {
			err := v.ValidateUsername(name)
			require.Error(t, err, "expected rejection for %q", name)
			require.Equal(t, KindValidation, KindOf(err))
		}
	})

	t.Run("too long", func(t *testing.T) {
		err := v.ValidateUsername(strings.Repeat("a", 65))
		require.Error(t, err)
	})
}

func TestValidator_ValidateEmail(t *testing.T) {
	v := newTestValidator()

	t.Run("valid shapes", func(t *testing.T) {
		for _, email := range []string{"a@b.co", "john.doe+tag@mail.example.com", "x@sub.domain.org"} {
			require.NoError(t, v.ValidateEmail(email), email)
		}
	})

	t.Run("malformed shapes", func(t *testing.T) {
		for _, email := range []string{
			"plainaddress",
			"missing-domain-dot@example",
			"@no-local.com",
			"no-domain@",
			"two@@signs.com",
			"dot@.leading.com",
			"dot@trailing.com.",
			"white space@example.com",
			"tab@exam\tple.com",
		} {
			err := v.ValidateEmail(email)
			require.Error(t, err, "expected rejection for %q", email)
			require.Equal(t, KindValidation, KindOf(err))
		}
	})

	t.Run("over RFC 5321 length", func(t *testing.T) {
		err := v.ValidateEmail(strings.Repeat("a", 250) + "@b.co")
		require.Error(t, err)
	})

	t.Run("adversarial input rejects in bounded time", func(t *testing.T) {
		// 204 characters of repetition that would choke a backtracking
		// matcher must reject well under the 100ms bound.
		input := "!@!." + strings.Repeat("!.", 100)
		start := time.Now()
		err := v.ValidateEmail(input)
		elapsed := time.Since(start)
		require.Error(t, err)
		require.Less(t, elapsed, 100*time.Millisecond)
	})
}

func TestValidator_ValidateStringInput(t *testing.T) {
	v := newTestValidator()

	require.NoError(t, v.ValidateStringInput(strings.Repeat("x", 1000), "note"))
	err := v.ValidateStringInput(strings.Repeat("x", 1001), "note")
	require.Error(t, err)
	require.Contains(t, err.Error(), "note")
}
