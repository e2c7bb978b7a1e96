package lldapcli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LLDAP_URL", "LLDAP_USERNAME", "LLDAP_PASSWORD", "LLDAP_TOKEN", "LLDAP_REFRESH_TOKEN", "LLDAP_FORMAT", "LLDAP_TIMEOUT", "LLDAP_UPLOAD_DIR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestResolveConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := ResolveConfig(writeConfigFile(t, ""), nil, Overrides{})
	require.NoError(t, err)

	require.Equal(t, DefaultURL, cfg.URL)
	require.Equal(t, DefaultLoginPath, cfg.LoginPath)
	require.Equal(t, DefaultGraphQLPath, cfg.GraphQLPath)
	require.Equal(t, DefaultLogoutPath, cfg.LogoutPath)
	require.Equal(t, DefaultRefreshPath, cfg.RefreshPath)
	require.Equal(t, "table", cfg.Format)
	require.Equal(t, 30, cfg.Timeout)
}

func TestResolveConfig_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
url = "https://dir.example.com"
username = "admin"
timeout = 10
login_path = "/custom/login"
`)
	cfg, err := ResolveConfig(path, nil, Overrides{})
	require.NoError(t, err)

	require.Equal(t, "https://dir.example.com", cfg.URL)
	require.Equal(t, "admin", cfg.Username)
	require.Equal(t, 10, cfg.Timeout)
	require.Equal(t, "/custom/login", cfg.LoginPath)
	require.Equal(t, DefaultGraphQLPath, cfg.GraphQLPath, "unset fields keep their defaults")
}

func TestResolveConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
url = "https://from-file.example.com"
username = "file-user"
`)
	t.Setenv("LLDAP_URL", "https://from-env.example.com")

	cfg, err := ResolveConfig(path, nil, Overrides{})
	require.NoError(t, err)
	require.Equal(t, "https://from-env.example.com", cfg.URL)
	require.Equal(t, "file-user", cfg.Username, "env leaves fields it does not set alone")
}

func TestResolveConfig_FlagsOverrideEverything(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `url = "https://from-file.example.com"`)
	t.Setenv("LLDAP_URL", "https://from-env.example.com")

	cfg, err := ResolveConfig(path, nil, Overrides{URL: "https://from-flag.example.com"})
	require.NoError(t, err)
	require.Equal(t, "https://from-flag.example.com", cfg.URL)
}

func TestResolveConfig_SessionLayerSuppliesTokens(t *testing.T) {
	clearEnv(t)
	store := NewSessionStoreAt(t.TempDir())
	require.NoError(t, store.Save("stored-access", "stored-refresh"))

	cfg, err := ResolveConfig(writeConfigFile(t, ""), store, Overrides{})
	require.NoError(t, err)
	require.Equal(t, "stored-access", cfg.Token)
	require.Equal(t, "stored-refresh", cfg.RefreshToken)

	// The env layer sits above the persisted session.
	t.Setenv("LLDAP_TOKEN", "env-access")
	cfg, err = ResolveConfig(writeConfigFile(t, ""), store, Overrides{})
	require.NoError(t, err)
	require.Equal(t, "env-access", cfg.Token)
	require.Equal(t, "stored-refresh", cfg.RefreshToken)
}

func TestResolveConfig_ExplicitMissingFileFails(t *testing.T) {
	clearEnv(t)
	_, err := ResolveConfig(filepath.Join(t.TempDir(), "absent.toml"), nil, Overrides{})
	require.Error(t, err)
	require.Equal(t, KindConfig, KindOf(err))
}
