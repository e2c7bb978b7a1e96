package lldapcli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// SessionTimeout is the application-level inactivity limit. It is
// independent of token expiry: once exceeded, both tokens are discarded and
// the caller must authenticate explicitly again.
const SessionTimeout = 30 * time.Minute

// session owns the credentials and token pair for one Transport instance
// and drives the authentication lifecycle against the HTTP auth endpoints.
// It is private to its Transport; concurrent Transports each own their own.
type session struct {
	cfg       *Config
	rest      *resty.Client
	audit     zerolog.Logger
	validator *Validator

	accessToken  string
	refreshToken string
	lastActivity time.Time
	loggedIn     bool // this process performed its own login

	now func() time.Time // overridable in tests
}

func newSession(cfg *Config, rest *resty.Client, audit zerolog.Logger, v *Validator) *session {
	return &session{
		cfg:          cfg,
		rest:         rest,
		audit:        audit,
		validator:    v,
		accessToken:  cfg.Token,
		refreshToken: cfg.RefreshToken,
		lastActivity: time.Now(),
		now:          time.Now,
	}
}

// Login exchanges credentials for a token pair. Credentials fall back to the
// configuration when the arguments are empty.
func (s *session) Login(ctx context.Context, username, password string) error {
	if username == "" {
		username = s.cfg.Username
	}
	if password == "" {
		password = s.cfg.Password
	}
	if username == "" || password == "" {
		return NewError(KindAuth, "login requires a username and password (flag, environment, or config file)")
	}
	if err := s.validator.ValidateUsername(username); err != nil {
		return err
	}

	s.audit.Info().Str("event", "login_attempt").Str("username", username).Msg("authenticating")

	resp, err := s.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"username": username, "password": password}).
		Post(s.cfg.URL + s.cfg.LoginPath)
	if err != nil {
		return WrapError(KindUnavailable, err, "login request failed")
	}
	if resp.StatusCode() == 429 {
		return rateLimitSignal("login rate limited: %s", resp.String())
	}
	if !resp.IsSuccess() {
		s.audit.Warn().Str("event", "login_failed").Str("username", username).Int("status", resp.StatusCode()).Msg("authentication rejected")
		return NewError(KindAuth, "login failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	var tokens loginResponse
	if err := json.Unmarshal(resp.Body(), &tokens); err != nil || tokens.Token == "" {
		return NewError(KindProtocol, "login response did not contain a token")
	}
	s.accessToken = tokens.Token
	s.refreshToken = tokens.RefreshToken
	s.lastActivity = s.now()
	s.audit.Info().Str("event", "login_success").Str("username", username).Msg("authenticated")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token. The
// refresh token itself is not rotated by the server on plain refresh.
func (s *session) Refresh(ctx context.Context) error {
	if s.refreshToken == "" {
		return NewError(KindAuth, "no refresh token available, login required")
	}

	resp, err := s.rest.R().
		SetContext(ctx).
		SetCookie(&http.Cookie{Name: "refresh_token", Value: s.refreshToken}).
		Get(s.cfg.URL + s.cfg.RefreshPath)
	if err != nil {
		return WrapError(KindUnavailable, err, "refresh request failed")
	}
	if resp.StatusCode() == 429 {
		return rateLimitSignal("refresh rate limited: %s", resp.String())
	}
	if !resp.IsSuccess() {
		s.audit.Warn().Str("event", "refresh_failed").Int("status", resp.StatusCode()).Msg("token refresh rejected")
		return NewError(KindAuth, "token refresh failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	var tokens loginResponse
	if err := json.Unmarshal(resp.Body(), &tokens); err != nil || tokens.Token == "" {
		return NewError(KindProtocol, "refresh response did not contain a token")
	}
	s.accessToken = tokens.Token
	s.lastActivity = s.now()
	s.audit.Debug().Str("event", "refresh_success").Msg("access token refreshed")
	return nil
}

// Logout invalidates the refresh token server-side. Best-effort: callers
// treat failures as advisory.
func (s *session) Logout(ctx context.Context) error {
	if s.refreshToken == "" {
		return NewError(KindAuth, "no refresh token available, nothing to log out")
	}
	resp, err := s.rest.R().
		SetContext(ctx).
		SetCookie(&http.Cookie{Name: "refresh_token", Value: s.refreshToken}).
		Get(s.cfg.URL + s.cfg.LogoutPath)
	if err != nil {
		return WrapError(KindUnavailable, err, "logout request failed")
	}
	if !resp.IsSuccess() {
		return NewError(KindAuth, "logout failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	s.accessToken = ""
	s.refreshToken = ""
	s.loggedIn = false
	s.audit.Info().Str("event", "logout").Msg("session terminated")
	return nil
}

// EnsureAuthenticated guarantees a usable access token before an API call.
// It prefers, in order: an unexpired stored access token (no network),
// a refresh, a configured-credential login. A session past the inactivity
// timeout is cleared and must be re-authenticated explicitly.
func (s *session) EnsureAuthenticated(ctx context.Context) error {
	if s.hasTokens() && s.now().Sub(s.lastActivity) > SessionTimeout {
		s.accessToken = ""
		s.refreshToken = ""
		s.audit.Warn().Str("event", "session_timeout").Dur("limit", SessionTimeout).Msg("session expired due to inactivity")
		return NewError(KindAuth, "session timed out after %s of inactivity, please authenticate again", SessionTimeout)
	}

	if s.accessToken != "" && !TokenExpired(s.accessToken, AccessExpiryBuffer) {
		s.lastActivity = s.now()
		return nil
	}

	if s.refreshToken != "" {
		if TokenExpired(s.refreshToken, RefreshExpiryBuffer) {
			s.audit.Warn().Str("event", "refresh_token_expiring").Msg("refresh token is expired or about to expire")
		}
		return s.Refresh(ctx)
	}

	if err := s.Login(ctx, "", ""); err != nil {
		return err
	}
	s.loggedIn = true
	return nil
}

// Cleanup logs out iff this process acquired its own login and still holds a
// refresh token. Safe to call repeatedly; failures must not mask the
// outcome of the command body.
func (s *session) Cleanup(ctx context.Context) {
	if !s.loggedIn || s.refreshToken == "" {
		return
	}
	if err := s.Logout(ctx); err != nil {
		s.audit.Warn().Str("event", "cleanup_logout_failed").Err(err).Msg("best-effort logout failed")
	}
}

func (s *session) hasTokens() bool {
	return s.accessToken != "" || s.refreshToken != ""
}

func (s *session) bearer() string {
	return fmt.Sprintf("Bearer %s", s.accessToken)
}
