package lldapcli

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind classifies a failure for exit-status mapping and retry policy.
type Kind int

const (
	KindGeneric Kind = iota
	KindUsage
	KindUnavailable
	KindIO
	KindRateLimit
	KindAuth
	KindConfig
	KindValidation
	KindProtocol
)

// Exit statuses follow the sysexits.h convention where one applies.
const (
	ExitOK          = 0
	ExitGeneric     = 1
	ExitUsage       = 64
	ExitUnavailable = 69
	ExitIO          = 74
	ExitRateLimit   = 75
	ExitAuth        = 77
	ExitConfig      = 78
)

// Error is a kind-tagged error. Messages are redacted at construction so a
// sensitive substring can never reach a log or the terminal.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a kind-tagged error with a redacted, formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: Redact(fmt.Sprintf(format, args...))}
}

// WrapError tags an underlying error with a kind and a redacted message.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: Redact(fmt.Sprintf(format, args...)), Err: err}
}

// KindOf returns the kind of err, or KindGeneric when it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}

// ExitCode maps an error to the process exit status documented in the README.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindUsage, KindValidation:
		return ExitUsage
	case KindUnavailable:
		return ExitUnavailable
	case KindIO:
		return ExitIO
	case KindRateLimit:
		return ExitRateLimit
	case KindAuth:
		return ExitAuth
	case KindConfig:
		return ExitConfig
	default:
		return ExitGeneric
	}
}

// tooManyRequests is the internal signal that an HTTP response carried
// status 429. Only the rate-limited executor consumes it; it is never
// surfaced to the caller directly.
type tooManyRequests struct {
	message string
}

func (e *tooManyRequests) Error() string { return e.message }

func rateLimitSignal(format string, args ...interface{}) error {
	return &tooManyRequests{message: Redact(fmt.Sprintf(format, args...))}
}

// isRateLimitSignal reports whether err indicates an HTTP 429 response.
func isRateLimitSignal(err error) bool {
	var t *tooManyRequests
	return errors.As(err, &t)
}

var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(token=)\S+`),
	regexp.MustCompile(`(?i)(password=)\S+`),
	regexp.MustCompile(`(Bearer )\S+`),
}

// Redact replaces token, password, and bearer-credential substrings with a
// redaction marker. Every error message and audit record passes through here
// before it can reach any output stream.
func Redact(s string) string {
	for _, p := range redactPatterns {
		s = p.ReplaceAllString(s, "${1}[REDACTED]")
	}
	return s
}
