package lldapcli

// Config holds the resolved CLI configuration.
// It is built once per invocation by ResolveConfig and never mutated after
// the Transport takes ownership of it.
type Config struct {
	URL    string // Directory server base URL (default: http://localhost:17170)
	Format string // Output format: json, table, toon (default: table)
	Pretty bool   // Pretty-print JSON output

	// Credentials
	Username     string
	Password     string
	Token        string // Access token (bearer), if already held
	RefreshToken string

	// API endpoint paths, joined onto URL
	LoginPath   string // default: /auth/simple/login
	GraphQLPath string // default: /api/graphql
	LogoutPath  string // default: /auth/logout
	RefreshPath string // default: /auth/refresh

	// HTTP client settings
	Timeout int  // Request timeout in seconds (default: 30)
	Debug   bool // Enable debug logging (logs requests/responses)

	// UploadDir, when set, constrains file uploads to paths under it.
	UploadDir string
}

// GraphQLRequest is the standard GraphQL request format
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// loginResponse is the body returned by the login and refresh endpoints.
// Refresh responses carry only the access token.
type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Formatter formats command results for output
type Formatter interface {
	Format(data interface{}) (string, error)
	Name() string
}

// FormatterRegistry manages available formatters
type FormatterRegistry interface {
	Register(name string, formatter Formatter) error
	Get(name string) (Formatter, error)
	List() []string
}
