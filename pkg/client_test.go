package lldapcli

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// authedTransport returns a transport holding a valid access token against
// the fake directory.
func authedTransport(t *testing.T, f *fakeDirectory) *Transport {
	t.Helper()
	cfg := f.config()
	cfg.Token = expiringToken(t, time.Now().Add(time.Hour))
	return newTestTransport(cfg)
}

func TestQuery_ReturnsData(t *testing.T) {
	f := newFakeDirectory(t)
	f.graphqlReply = `{"data":{"users":[{"id":"admin"}]}}`
	tr := authedTransport(t, f)

	data, err := tr.Query(context.Background(), docListUsers, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"users":[{"id":"admin"}]}`, string(data))
	require.Equal(t, docListUsers, f.graphqlBody.Query)
	require.NotNil(t, f.graphqlBody.Variables, "variables default to an empty mapping")
}

func TestQuery_GraphQLErrorsFailEvenWithData(t *testing.T) {
	f := newFakeDirectory(t)
	f.graphqlReply = `{"data":{"users":[]},"errors":[{"message":"first"},{"message":"second"}]}`
	tr := authedTransport(t, f)

	_, err := tr.Query(context.Background(), docListUsers, nil)
	require.Error(t, err)
	require.Equal(t, KindProtocol, KindOf(err))
	require.Contains(t, err.Error(), "first")
	require.Contains(t, err.Error(), "second")
}

func TestQuery_NoDataIsProtocolError(t *testing.T) {
	f := newFakeDirectory(t)
	f.graphqlReply = `{}`
	tr := authedTransport(t, f)

	_, err := tr.Query(context.Background(), docListUsers, nil)
	require.Error(t, err)
	require.Equal(t, KindProtocol, KindOf(err))
	require.Contains(t, err.Error(), "no data")
}

func TestQuery_ErrorMessagesAreRedacted(t *testing.T) {
	f := newFakeDirectory(t)
	f.graphqlReply = `{"errors":[{"message":"invalid token=abc123XYZ supplied"}]}`
	tr := authedTransport(t, f)

	_, err := tr.Query(context.Background(), docListUsers, nil)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "abc123XYZ")
	require.Contains(t, err.Error(), "token=[REDACTED]")
}

func TestQuery_401IsReauthenticationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &Config{URL: srv.URL, GraphQLPath: DefaultGraphQLPath, LoginPath: DefaultLoginPath, LogoutPath: DefaultLogoutPath, RefreshPath: DefaultRefreshPath, Timeout: 5}
	cfg.Token = expiringToken(t, time.Now().Add(time.Hour))
	tr := newTestTransport(cfg)

	_, err := tr.Query(context.Background(), docListUsers, nil)
	require.Error(t, err)
	require.Equal(t, KindAuth, KindOf(err))
	require.Contains(t, err.Error(), "re-authentication")
}

func TestQuery_429RetriesWholeOperation(t *testing.T) {
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"ok":true}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &Config{URL: srv.URL, GraphQLPath: DefaultGraphQLPath, LoginPath: DefaultLoginPath, LogoutPath: DefaultLogoutPath, RefreshPath: DefaultRefreshPath, Timeout: 5}
	cfg.Token = expiringToken(t, time.Now().Add(time.Hour))
	tr := newTestTransport(cfg)

	var slept []time.Duration
	tr.limiter.sleep = func(d time.Duration) { slept = append(slept, d) }

	data, err := tr.Query(context.Background(), docListUsers, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
	require.Equal(t, 2, hits)
	require.Equal(t, []time.Duration{time.Second}, slept)
}

func TestQueryWithUpload(t *testing.T) {
	newUploadTransport := func(t *testing.T, f *fakeDirectory, allowedDir string) *Transport {
		cfg := f.config()
		cfg.Token = expiringToken(t, time.Now().Add(time.Hour))
		cfg.UploadDir = allowedDir
		return newTestTransport(cfg)
	}

	t.Run("splices base64 content into the placeholder", func(t *testing.T) {
		f := newFakeDirectory(t)
		f.graphqlReply = `{"data":{"updateUser":{"ok":true}}}`
		tr := newUploadTransport(t, f, "")

		dir := t.TempDir()
		path := filepath.Join(dir, "avatar.jpg")
		require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0600))

		vars := map[string]interface{}{
			"user": map[string]interface{}{"id": "admin", "avatar": ""},
		}
		_, err := tr.QueryWithUpload(context.Background(), docUpdateUser, vars, path)
		require.NoError(t, err)

		encoded := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
		sent, ok := f.graphqlBody.Variables["user"].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, encoded, sent["avatar"])
	})

	t.Run("missing file is an IO error", func(t *testing.T) {
		f := newFakeDirectory(t)
		tr := newUploadTransport(t, f, "")

		vars := map[string]interface{}{"avatar": ""}
		_, err := tr.QueryWithUpload(context.Background(), docUpdateUser, vars, filepath.Join(t.TempDir(), "nope.jpg"))
		require.Error(t, err)
		require.Equal(t, KindIO, KindOf(err))
		require.Zero(t, f.graphqlHits, "nothing is sent when the upload fails")
	})

	t.Run("escape of the allowed directory is rejected", func(t *testing.T) {
		f := newFakeDirectory(t)
		allowed := t.TempDir()
		outside := t.TempDir()
		path := filepath.Join(outside, "sneaky.jpg")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

		tr := newUploadTransport(t, f, allowed)
		vars := map[string]interface{}{"avatar": ""}
		_, err := tr.QueryWithUpload(context.Background(), docUpdateUser, vars, path)
		require.Error(t, err)
		require.Equal(t, KindIO, KindOf(err))
	})

	t.Run("no placeholder variable is a usage error", func(t *testing.T) {
		f := newFakeDirectory(t)
		tr := newUploadTransport(t, f, "")

		dir := t.TempDir()
		path := filepath.Join(dir, "avatar.jpg")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

		vars := map[string]interface{}{"avatar": "already-set"}
		_, err := tr.QueryWithUpload(context.Background(), docUpdateUser, vars, path)
		require.Error(t, err)
		require.Equal(t, KindUsage, KindOf(err))
	})
}
