package lldapcli

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Input length limits. The email bound follows RFC 5321.
const (
	MaxGenericLength  = 1000
	MaxUsernameLength = 64
	MaxEmailLength    = 254
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Validator checks user-supplied input before it is allowed anywhere near a
// network call. Rejections are audited to the diagnostic stream.
type Validator struct {
	audit zerolog.Logger
}

// NewValidator creates a Validator that audits rejections through log.
func NewValidator(log zerolog.Logger) *Validator {
	return &Validator{audit: log}
}

// ValidateLength fails when value exceeds max characters.
func (v *Validator) ValidateLength(value, field string, max int) error {
	if len(value) > max {
		v.audit.Warn().
			Str("event", "validation_rejected").
			Str("field", field).
			Int("length", len(value)).
			Int("limit", max).
			Msg("input exceeds length limit")
		return NewError(KindValidation, "%s exceeds maximum length of %d characters", field, max)
	}
	return nil
}

// ValidateUsername checks length and restricts the username to
// letters, digits, underscore, dot, and hyphen.
func (v *Validator) ValidateUsername(value string) error {
	if err := v.ValidateLength(value, "username", MaxUsernameLength); err != nil {
		return err
	}
	if !usernamePattern.MatchString(value) {
		v.audit.Warn().
			Str("event", "validation_rejected").
			Str("field", "username").
			Int("length", len(value)).
			Msg("username contains disallowed characters")
		return NewError(KindValidation, "username may only contain letters, digits, '_', '.', and '-'")
	}
	return nil
}

// ValidateEmail checks length and the local@domain.tld shape. The check is a
// single left-to-right scan so it stays linear even on adversarially
// repetitive input.
func (v *Validator) ValidateEmail(value string) error {
	if err := v.ValidateLength(value, "email", MaxEmailLength); err != nil {
		return err
	}
	if !emailShapeOK(value) {
		v.audit.Warn().
			Str("event", "validation_rejected").
			Str("field", "email").
			Int("length", len(value)).
			Msg("email has invalid format")
		return NewError(KindValidation, "invalid email format")
	}
	return nil
}

// ValidateStringInput applies the generic length limit to a named field.
func (v *Validator) ValidateStringInput(value, field string) error {
	return v.ValidateLength(value, field, MaxGenericLength)
}

// emailShapeOK verifies local@domain where neither part is empty or contains
// whitespace or '@', and the domain contains at least one interior dot and
// neither starts nor ends with one.
func emailShapeOK(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if strings.ContainsAny(local, " \t\r\n") || strings.ContainsAny(domain, " \t\r\n@") {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	if domain[0] == '.' || domain[len(domain)-1] == '.' {
		return false
	}
	return true
}
