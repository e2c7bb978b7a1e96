package lldapcli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry buffers. The access buffer avoids sending a token that will die in
// flight; the refresh buffer is advisory only (a warning, never a failure).
const (
	AccessExpiryBuffer  = 60 * time.Second
	RefreshExpiryBuffer = 300 * time.Second
)

// TokenExpired reports whether the token should be treated as expired when
// checked with the given buffer ahead of the actual expiry instant.
//
// The claims are decoded without signature verification. This is a
// client-side optimization to skip requests that would certainly 401, not a
// trust boundary: any token that cannot be parsed is reported expired so the
// caller re-authenticates instead of trusting garbage. A token that asserts
// no expiry is reported not expired.
func TokenExpired(token string, buffer time.Duration) bool {
	return tokenExpiredAt(token, buffer, time.Now())
}

func tokenExpiredAt(token string, buffer time.Duration, now time.Time) bool {
	tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		// No expiry asserted; valid indefinitely as far as this check goes.
		return false
	}
	return !now.Before(exp.Time.Add(-buffer))
}

// storedSession is the on-disk shape of a persisted token pair.
type storedSession struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// SessionStore persists the token pair obtained by `lldap-cli login` so
// later invocations can reuse it instead of re-sending the password.
// The pair is stored at {dir}/session.json with 0600 permissions.
type SessionStore struct {
	dir string
}

// NewSessionStore creates a SessionStore under the user config directory
// (~/.config/lldap-cli on most systems).
func NewSessionStore() *SessionStore {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return &SessionStore{dir: filepath.Join(base, "lldap-cli")}
}

// NewSessionStoreAt creates a SessionStore rooted at the given directory.
func NewSessionStoreAt(dir string) *SessionStore {
	return &SessionStore{dir: dir}
}

func (s *SessionStore) path() string {
	return filepath.Join(s.dir, "session.json")
}

// Save writes the token pair to disk, creating the directory if needed.
func (s *SessionStore) Save(token, refreshToken string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return WrapError(KindIO, err, "failed to create session directory")
	}
	data, err := json.Marshal(storedSession{
		Token:        strings.TrimSpace(token),
		RefreshToken: strings.TrimSpace(refreshToken),
	})
	if err != nil {
		return WrapError(KindIO, err, "failed to encode session")
	}
	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		return WrapError(KindIO, err, "failed to write session file")
	}
	return nil
}

// Load reads the persisted token pair. A missing file returns empty strings,
// not an error.
func (s *SessionStore) Load() (token, refreshToken string, err error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return "", "", nil
	}
	if err != nil {
		return "", "", WrapError(KindIO, err, "failed to read session file")
	}
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", "", WrapError(KindIO, err, "session file is corrupt")
	}
	return stored.Token, stored.RefreshToken, nil
}

// Clear deletes the persisted session file.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return WrapError(KindIO, err, "failed to delete session file")
	}
	return nil
}

// Exists reports whether a session file is present.
func (s *SessionStore) Exists() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

// FormatInfo returns a human-readable summary of the persisted session.
func (s *SessionStore) FormatInfo() string {
	token, _, err := s.Load()
	if err != nil || token == "" {
		return "not logged in"
	}
	tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "invalid session token"
	}
	claims, _ := tok.Claims.(jwt.MapClaims)
	user, _ := claims["user"].(string)
	if user == "" {
		user, _ = claims["sub"].(string)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		return fmt.Sprintf("logged in as %s (token expires %s)", user, exp.Time.Format(time.RFC3339))
	}
	return fmt.Sprintf("logged in as %s", user)
}
