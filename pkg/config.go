package lldapcli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
)

// Endpoint path defaults.
const (
	DefaultURL         = "http://localhost:17170"
	DefaultLoginPath   = "/auth/simple/login"
	DefaultGraphQLPath = "/api/graphql"
	DefaultLogoutPath  = "/auth/logout"
	DefaultRefreshPath = "/auth/refresh"
)

// fileConfig is the shape of the TOML config file
// (~/.config/lldap-cli/config.toml or --config).
type fileConfig struct {
	URL          string `toml:"url"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Token        string `toml:"token"`
	RefreshToken string `toml:"refresh_token"`
	LoginPath    string `toml:"login_path"`
	GraphQLPath  string `toml:"graphql_path"`
	LogoutPath   string `toml:"logout_path"`
	RefreshPath  string `toml:"refresh_path"`
	Format       string `toml:"format"`
	Timeout      int    `toml:"timeout"`
	UploadDir    string `toml:"upload_dir"`
}

// envConfig is the environment layer, decoded with envdecode.
type envConfig struct {
	URL          string `env:"LLDAP_URL"`
	Username     string `env:"LLDAP_USERNAME"`
	Password     string `env:"LLDAP_PASSWORD"`
	Token        string `env:"LLDAP_TOKEN"`
	RefreshToken string `env:"LLDAP_REFRESH_TOKEN"`
	Format       string `env:"LLDAP_FORMAT"`
	Timeout      int    `env:"LLDAP_TIMEOUT"`
	UploadDir    string `env:"LLDAP_UPLOAD_DIR"`
}

// Overrides carries the values taken from CLI flags. Empty fields are
// treated as unset.
type Overrides struct {
	URL      string
	Username string
	Password string
	Token    string
	Format   string
	Timeout  int
	Debug    bool
}

// ResolveConfig builds the immutable configuration for one invocation by
// merging layers in ascending precedence:
//
//	defaults < config file < persisted session < environment < flags
//
// Each layer only overrides fields it actually sets, so the precedence is
// auditable field by field.
func ResolveConfig(configPath string, store *SessionStore, flags Overrides) (*Config, error) {
	cfg := &Config{
		URL:         DefaultURL,
		Format:      "table",
		LoginPath:   DefaultLoginPath,
		GraphQLPath: DefaultGraphQLPath,
		LogoutPath:  DefaultLogoutPath,
		RefreshPath: DefaultRefreshPath,
		Timeout:     30,
	}

	if err := applyFileLayer(cfg, configPath); err != nil {
		return nil, err
	}
	if store != nil {
		token, refresh, err := store.Load()
		if err != nil {
			return nil, err
		}
		overrideString(&cfg.Token, token)
		overrideString(&cfg.RefreshToken, refresh)
	}
	if err := applyEnvLayer(cfg); err != nil {
		return nil, err
	}
	applyFlagLayer(cfg, flags)

	if cfg.URL == "" {
		return nil, NewError(KindConfig, "server URL is not configured")
	}
	return cfg, nil
}

func applyFileLayer(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(base, "lldap-cli", "config.toml")
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return WrapError(KindConfig, err, "cannot read config file %q", path)
	}

	overrideString(&cfg.URL, fc.URL)
	overrideString(&cfg.Username, fc.Username)
	overrideString(&cfg.Password, fc.Password)
	overrideString(&cfg.Token, fc.Token)
	overrideString(&cfg.RefreshToken, fc.RefreshToken)
	overrideString(&cfg.LoginPath, fc.LoginPath)
	overrideString(&cfg.GraphQLPath, fc.GraphQLPath)
	overrideString(&cfg.LogoutPath, fc.LogoutPath)
	overrideString(&cfg.RefreshPath, fc.RefreshPath)
	overrideString(&cfg.Format, fc.Format)
	overrideString(&cfg.UploadDir, fc.UploadDir)
	overrideInt(&cfg.Timeout, fc.Timeout)
	return nil
}

func applyEnvLayer(cfg *Config) error {
	var ec envConfig
	if err := envdecode.Decode(&ec); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return WrapError(KindConfig, err, "cannot decode environment configuration")
	}
	overrideString(&cfg.URL, ec.URL)
	overrideString(&cfg.Username, ec.Username)
	overrideString(&cfg.Password, ec.Password)
	overrideString(&cfg.Token, ec.Token)
	overrideString(&cfg.RefreshToken, ec.RefreshToken)
	overrideString(&cfg.Format, ec.Format)
	overrideString(&cfg.UploadDir, ec.UploadDir)
	overrideInt(&cfg.Timeout, ec.Timeout)
	return nil
}

func applyFlagLayer(cfg *Config, flags Overrides) {
	overrideString(&cfg.URL, flags.URL)
	overrideString(&cfg.Username, flags.Username)
	overrideString(&cfg.Password, flags.Password)
	overrideString(&cfg.Token, flags.Token)
	overrideString(&cfg.Format, flags.Format)
	overrideInt(&cfg.Timeout, flags.Timeout)
	if flags.Debug {
		cfg.Debug = true
	}
}

func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func overrideInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}
