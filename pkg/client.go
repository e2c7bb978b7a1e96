package lldapcli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transport is the single authenticated entry point to the directory
// server's GraphQL API. It composes the session manager, the input
// validator, and the rate-limited executor; every domain service call goes
// through Query or QueryWithUpload.
//
// A Transport owns its session state exclusively. Two Transports built from
// the same configuration share nothing mutable.
type Transport struct {
	config    *Config
	client    *resty.Client
	session   *session
	limiter   *rateLimiter
	validator *Validator
	audit     zerolog.Logger
}

// NewTransport creates a Transport from resolved configuration. The audit
// logger is carried explicitly per instance rather than as process state so
// independent sessions in one process cannot interfere.
func NewTransport(cfg *Config, audit zerolog.Logger) *Transport {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 30 * time.Second
	}

	rest := resty.New().SetTimeout(timeout)
	if cfg.Debug {
		rest.SetDebug(true)
	}

	audit = audit.With().Str("session_id", uuid.NewString()).Logger()
	validator := NewValidator(audit)

	return &Transport{
		config:    cfg,
		client:    rest,
		session:   newSession(cfg, rest, audit, validator),
		limiter:   newRateLimiter(),
		validator: validator,
		audit:     audit,
	}
}

// Validator exposes input validation to the CLI layer.
func (t *Transport) Validator() *Validator { return t.validator }

// Token returns the current access token, empty if none is held.
func (t *Transport) Token() string { return t.session.accessToken }

// RefreshToken returns the current refresh token, empty if none is held.
func (t *Transport) RefreshToken() string { return t.session.refreshToken }

// Login authenticates explicitly with the given (or configured) credentials
// and marks the session as self-acquired so Cleanup will log out.
func (t *Transport) Login(ctx context.Context, username, password string) error {
	_, err := t.limiter.Execute(ctx, func(ctx context.Context) (json.RawMessage, error) {
		if err := t.session.Login(ctx, username, password); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	t.session.loggedIn = true
	return nil
}

// Refresh exchanges the stored refresh token for a new access token.
func (t *Transport) Refresh(ctx context.Context) error {
	return t.session.Refresh(ctx)
}

// Logout invalidates the current refresh token server-side.
func (t *Transport) Logout(ctx context.Context) error {
	return t.session.Logout(ctx)
}

// EnsureAuthenticated is exposed for commands that need a token without
// issuing a query (e.g. login followed by session persistence).
func (t *Transport) EnsureAuthenticated(ctx context.Context) error {
	_, err := t.limiter.Execute(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return nil, t.session.EnsureAuthenticated(ctx)
	})
	return err
}

// Cleanup logs out iff this process acquired its own login. Run once at the
// end of every command regardless of its outcome.
func (t *Transport) Cleanup(ctx context.Context) {
	t.session.Cleanup(ctx)
}

// Query executes a GraphQL document with variables and returns the raw
// `data` payload. Authentication, rate-limit backoff, and redaction are all
// handled here; a response with a non-empty errors array always fails even
// when data is present.
func (t *Transport) Query(ctx context.Context, document string, variables map[string]interface{}) (json.RawMessage, error) {
	return t.limiter.Execute(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return t.execute(ctx, document, variables, "")
	})
}

// QueryWithUpload is Query plus a file whose base64-encoded contents are
// spliced into the variables at the empty-string placeholder slot before the
// request is sent.
func (t *Transport) QueryWithUpload(ctx context.Context, document string, variables map[string]interface{}, filePath string) (json.RawMessage, error) {
	return t.limiter.Execute(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return t.execute(ctx, document, variables, filePath)
	})
}

// QueryInto runs Query and unmarshals the data payload into out.
func (t *Transport) QueryInto(ctx context.Context, document string, variables map[string]interface{}, out interface{}) error {
	data, err := t.Query(ctx, document, variables)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return WrapError(KindProtocol, err, "failed to decode server response")
	}
	return nil
}

// execute is one authenticated request/response cycle. The rate limiter
// wraps it from the outside, so a 429 anywhere in the cycle (including the
// authentication step) retries the whole cycle.
func (t *Transport) execute(ctx context.Context, document string, variables map[string]interface{}, uploadPath string) (json.RawMessage, error) {
	if err := t.session.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	if variables == nil {
		variables = map[string]interface{}{}
	}
	if uploadPath != "" {
		if err := t.spliceUpload(variables, uploadPath); err != nil {
			return nil, err
		}
	}

	body := GraphQLRequest{Query: document, Variables: variables}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", t.session.bearer()).
		SetBody(body).
		Post(t.config.URL + t.config.GraphQLPath)
	if err != nil {
		return nil, WrapError(KindUnavailable, err, "request failed")
	}

	switch {
	case resp.StatusCode() == 401:
		return nil, NewError(KindAuth, "server rejected the access token (401), re-authentication required")
	case resp.StatusCode() == 429:
		return nil, rateLimitSignal("rate limited: %s", resp.String())
	case !resp.IsSuccess():
		return nil, NewError(KindProtocol, "request failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []GraphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, WrapError(KindProtocol, err, "failed to parse response: %s", Redact(string(resp.Body())))
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, NewError(KindProtocol, "server returned errors: %s", strings.Join(msgs, "; "))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, NewError(KindProtocol, "server returned no data")
	}
	return envelope.Data, nil
}

// spliceUpload reads the file at path and base64-encodes its contents into
// the first variable holding an empty-string placeholder. The file is read
// fully and closed before the request body is built.
func (t *Transport) spliceUpload(variables map[string]interface{}, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return WrapError(KindIO, err, "cannot resolve upload path %q", path)
	}
	abs = filepath.Clean(abs)
	for _, segment := range strings.Split(abs, string(filepath.Separator)) {
		if segment == ".." {
			return NewError(KindIO, "upload path %q contains a parent-directory traversal", path)
		}
	}
	if t.config.UploadDir != "" {
		allowed := filepath.Clean(t.config.UploadDir)
		rel, err := filepath.Rel(allowed, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return NewError(KindIO, "upload path %q escapes the allowed directory %q", path, allowed)
		}
	}

	raw, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return NewError(KindIO, "upload file %q does not exist", path)
	}
	if err != nil {
		return WrapError(KindIO, err, "cannot read upload file %q", path)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	if !spliceInto(variables, encoded) {
		return NewError(KindUsage, "no empty-string placeholder variable for upload content")
	}
	return nil
}

// spliceInto fills the first empty-string placeholder found in the variable
// mapping, descending into nested objects.
func spliceInto(variables map[string]interface{}, encoded string) bool {
	for key, value := range variables {
		switch v := value.(type) {
		case string:
			if v == "" {
				variables[key] = encoded
				return true
			}
		case map[string]interface{}:
			if spliceInto(v, encoded) {
				return true
			}
		}
	}
	return false
}
