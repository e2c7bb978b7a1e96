package lldapcli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// CLIBuilder creates the CLI command tree. Each command resolves
// configuration, builds a Transport, runs one sequential chain of service
// calls, and always runs session cleanup before exiting.
type CLIBuilder struct {
	formatReg FormatterRegistry
	store     *SessionStore
	audit     zerolog.Logger
}

// NewCLIBuilder creates a new CLI command builder. The audit logger writes
// structured security-relevant events to the diagnostic stream.
func NewCLIBuilder(audit zerolog.Logger) *CLIBuilder {
	return &CLIBuilder{
		formatReg: NewFormatterRegistry(),
		store:     NewSessionStore(),
		audit:     audit,
	}
}

// GlobalFlags returns the connection and output flags shared by every
// command. Environment variables are handled by the config layer so the
// flag > env > file precedence stays in one place.
func (b *CLIBuilder) GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"H"},
			Usage:   "Directory server base URL (env: LLDAP_URL)",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to config file (default: ~/.config/lldap-cli/config.toml)",
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"D"},
			Usage:   "Admin username (env: LLDAP_USERNAME)",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"w"},
			Usage:   "Admin password (env: LLDAP_PASSWORD)",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Access token to use instead of credentials (env: LLDAP_TOKEN)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, json, json-pretty, toon",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "Request timeout in seconds",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug logging (logs HTTP requests/responses)",
		},
	}
}

// RegisterCommands attaches all commands to the app.
func (b *CLIBuilder) RegisterCommands(app *cli.App) {
	app.Flags = append(app.Flags, b.GlobalFlags()...)
	app.Commands = append(app.Commands,
		b.loginCommand(),
		b.logoutCommand(),
		b.whoamiCommand(),
		b.userCommand(),
		b.groupCommand(),
		b.schemaCommand(),
	)
}

// resolve builds the per-invocation configuration from the flag layer down.
func (b *CLIBuilder) resolve(c *cli.Context) (*Config, error) {
	return ResolveConfig(c.String("config"), b.store, Overrides{
		URL:      c.String("url"),
		Username: c.String("username"),
		Password: c.String("password"),
		Token:    c.String("token"),
		Format:   c.String("format"),
		Timeout:  c.Int("timeout"),
		Debug:    c.Bool("debug"),
	})
}

// run wraps a command body with transport construction, deferred cleanup,
// result formatting, and exit-status mapping. Cleanup runs regardless of
// the body's outcome and its failures never mask the body's result.
func (b *CLIBuilder) run(c *cli.Context, body func(ctx context.Context, t *Transport) (interface{}, error)) error {
	cfg, err := b.resolve(c)
	if err != nil {
		return b.exit(err)
	}
	t := NewTransport(cfg, b.audit)
	ctx := context.Background()
	defer t.Cleanup(ctx)

	result, err := body(ctx, t)
	if err != nil {
		return b.exit(err)
	}
	if result == nil {
		return nil
	}
	return b.output(cfg, result)
}

// exit prints the single diagnostic line and maps the error to its exit
// status. Messages are redacted a second time here as a backstop.
func (b *CLIBuilder) exit(err error) error {
	fmt.Fprintf(os.Stderr, "error: %s\n", Redact(err.Error()))
	return cli.Exit("", ExitCode(err))
}

func (b *CLIBuilder) output(cfg *Config, result interface{}) error {
	formatter, err := b.formatReg.Get(cfg.Format)
	if err != nil {
		formatter, _ = b.formatReg.Get("table")
	}
	out, err := formatter.Format(result)
	if err != nil {
		return b.exit(err)
	}
	fmt.Println(out)
	return nil
}

// statusResult is the output shape for mutations that only succeed or fail.
type statusResult struct {
	Status string `json:"status"`
}

var okResult = statusResult{Status: "ok"}

func (b *CLIBuilder) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate and persist the session for later invocations",
		Description: "Exchanges credentials for a token pair and stores it under the " +
			"user config directory so subsequent commands reuse it. Prompts for the " +
			"password when it is not supplied by flag, environment, or config file.",
		Action: func(c *cli.Context) error {
			cfg, err := b.resolve(c)
			if err != nil {
				return b.exit(err)
			}
			if cfg.Password == "" && cfg.Username != "" {
				pw, err := promptPassword(fmt.Sprintf("Password for %s: ", cfg.Username))
				if err != nil {
					return b.exit(err)
				}
				cfg.Password = pw
			}
			t := NewTransport(cfg, b.audit)
			ctx := context.Background()
			if err := t.Login(ctx, cfg.Username, cfg.Password); err != nil {
				return b.exit(err)
			}
			if err := b.store.Save(t.Token(), t.RefreshToken()); err != nil {
				return b.exit(err)
			}
			fmt.Fprintln(os.Stderr, "login successful, session saved")
			return nil
		},
	}
}

func (b *CLIBuilder) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Invalidate the persisted session",
		Action: func(c *cli.Context) error {
			cfg, err := b.resolve(c)
			if err != nil {
				return b.exit(err)
			}
			if cfg.RefreshToken != "" {
				t := NewTransport(cfg, b.audit)
				if err := t.Logout(context.Background()); err != nil {
					// Server-side invalidation is best-effort; always drop
					// the local session.
					fmt.Fprintf(os.Stderr, "warning: %s\n", Redact(err.Error()))
				}
			}
			if err := b.store.Clear(); err != nil {
				return b.exit(err)
			}
			fmt.Fprintln(os.Stderr, "logged out")
			return nil
		},
	}
}

func (b *CLIBuilder) whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the persisted session state",
		Action: func(c *cli.Context) error {
			fmt.Println(b.store.FormatInfo())
			return nil
		},
	}
}

func (b *CLIBuilder) userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "User administration",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all users",
				Action: func(c *cli.Context) error {
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return NewUserService(t).List(ctx)
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show one user in detail",
				ArgsUsage: "<user-id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return NewUserService(t).Get(ctx, id)
					})
				},
			},
			{
				Name:      "create",
				Usage:     "Create a user",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "Email address"},
					&cli.StringFlag{Name: "display-name", Usage: "Display name"},
					&cli.StringFlag{Name: "first-name", Usage: "First name"},
					&cli.StringFlag{Name: "last-name", Usage: "Last name"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					input := CreateUserInput{
						ID:          id,
						Email:       c.String("email"),
						DisplayName: c.String("display-name"),
						FirstName:   c.String("first-name"),
						LastName:    c.String("last-name"),
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return NewUserService(t).Create(ctx, input)
					})
				},
			},
			{
				Name:      "update",
				Usage:     "Update user fields",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "New email address"},
					&cli.StringFlag{Name: "display-name", Usage: "New display name"},
					&cli.StringFlag{Name: "first-name", Usage: "New first name"},
					&cli.StringFlag{Name: "last-name", Usage: "New last name"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					fields := map[string]string{}
					for flag, name := range map[string]string{
						"email":        "email",
						"display-name": "displayName",
						"first-name":   "firstName",
						"last-name":    "lastName",
					} {
						if v := c.String(flag); v != "" {
							fields[name] = v
						}
					}
					if len(fields) == 0 {
						return b.exit(NewError(KindUsage, "nothing to update, pass at least one field flag"))
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewUserService(t).Update(ctx, id, fields)
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a user",
				ArgsUsage: "<user-id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewUserService(t).Delete(ctx, id)
					})
				},
			},
			{
				Name:      "set-avatar",
				Usage:     "Upload an avatar image for a user",
				ArgsUsage: "<user-id> <image-file>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					file, err := requireArg(c, 1, "image-file")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewUserService(t).SetAvatar(ctx, id, file)
					})
				},
			},
			{
				Name:      "set-password",
				Usage:     "Set a user's password via the external password tool",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "new-password", Usage: "New password (prompted when omitted)"},
					&cli.StringFlag{Name: "password-tool", Usage: "Path to the password tool binary", Value: DefaultPasswordTool},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					newPassword := c.String("new-password")
					if newPassword == "" {
						newPassword, err = promptPassword(fmt.Sprintf("New password for %s: ", id))
						if err != nil {
							return b.exit(err)
						}
					}
					tool := c.String("password-tool")
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						if err := t.EnsureAuthenticated(ctx); err != nil {
							return nil, err
						}
						setter := NewPasswordSetter(t, tool, nil)
						return okResult, setter.Set(ctx, id, newPassword)
					})
				},
			},
			{
				Name:      "add-attr",
				Usage:     "Add values to a user attribute",
				ArgsUsage: "<user-id> <attribute> <value>...",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					attr, err := requireArg(c, 1, "attribute")
					if err != nil {
						return b.exit(err)
					}
					values := c.Args().Slice()[2:]
					if len(values) == 0 {
						return b.exit(NewError(KindUsage, "at least one value is required"))
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewUserService(t).AddAttributeValues(ctx, id, attr, values)
					})
				},
			},
			{
				Name:      "remove-attr",
				Usage:     "Remove one value from a user attribute (clears it when empty)",
				ArgsUsage: "<user-id> <attribute> <value>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					attr, err := requireArg(c, 1, "attribute")
					if err != nil {
						return b.exit(err)
					}
					value, err := requireArg(c, 2, "value")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewUserService(t).RemoveAttributeValue(ctx, id, attr, value)
					})
				},
			},
			{
				Name:      "clear-attr",
				Usage:     "Remove a user attribute entirely",
				ArgsUsage: "<user-id> <attribute>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					attr, err := requireArg(c, 1, "attribute")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewUserService(t).ClearAttribute(ctx, id, attr)
					})
				},
			},
		},
	}
}

func (b *CLIBuilder) groupCommand() *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "Group administration",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all groups",
				Action: func(c *cli.Context) error {
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return NewGroupService(t).List(ctx)
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show one group with its members",
				ArgsUsage: "<group-id>",
				Action: func(c *cli.Context) error {
					id, err := requireIntArg(c, 0, "group-id")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return NewGroupService(t).Get(ctx, id)
					})
				},
			},
			{
				Name:      "create",
				Usage:     "Create a group",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name, err := requireArg(c, 0, "name")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return NewGroupService(t).Create(ctx, name)
					})
				},
			},
			{
				Name:      "rename",
				Usage:     "Change a group's display name",
				ArgsUsage: "<group-id> <new-name>",
				Action: func(c *cli.Context) error {
					id, err := requireIntArg(c, 0, "group-id")
					if err != nil {
						return b.exit(err)
					}
					name, err := requireArg(c, 1, "new-name")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewGroupService(t).Rename(ctx, id, name)
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a group",
				ArgsUsage: "<group-id>",
				Action: func(c *cli.Context) error {
					id, err := requireIntArg(c, 0, "group-id")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewGroupService(t).Delete(ctx, id)
					})
				},
			},
			{
				Name:      "add-member",
				Usage:     "Add a user to a group",
				ArgsUsage: "<user-id> <group-id>",
				Action: func(c *cli.Context) error {
					user, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					id, err := requireIntArg(c, 1, "group-id")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewGroupService(t).AddMember(ctx, user, id)
					})
				},
			},
			{
				Name:      "remove-member",
				Usage:     "Remove a user from a group",
				ArgsUsage: "<user-id> <group-id>",
				Action: func(c *cli.Context) error {
					user, err := requireArg(c, 0, "user-id")
					if err != nil {
						return b.exit(err)
					}
					id, err := requireIntArg(c, 1, "group-id")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewGroupService(t).RemoveMember(ctx, user, id)
					})
				},
			},
		},
	}
}

func (b *CLIBuilder) schemaCommand() *cli.Command {
	groupFlag := func() *cli.BoolFlag {
		return &cli.BoolFlag{
			Name:  "group",
			Usage: "Operate on the group schema instead of the user schema",
		}
	}
	return &cli.Command{
		Name:  "schema",
		Usage: "Schema administration (attributes and object classes)",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the user and group schema",
				Action: func(c *cli.Context) error {
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return NewSchemaService(t).Get(ctx)
					})
				},
			},
			{
				Name:      "add-attr",
				Usage:     "Define a new attribute",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					groupFlag(),
					&cli.StringFlag{Name: "type", Value: "STRING", Usage: "Attribute type: STRING, INTEGER, DATE_TIME, JPEG_PHOTO"},
					&cli.BoolFlag{Name: "list", Usage: "Attribute holds a list of values"},
					&cli.BoolFlag{Name: "hidden", Usage: "Attribute is not visible to users"},
					&cli.BoolFlag{Name: "read-only", Usage: "Attribute is not user-editable"},
				},
				Action: func(c *cli.Context) error {
					name, err := requireArg(c, 0, "name")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewSchemaService(t).AddAttribute(ctx,
							c.Bool("group"), name, c.String("type"),
							c.Bool("list"), !c.Bool("hidden"), !c.Bool("read-only"))
					})
				},
			},
			{
				Name:      "delete-attr",
				Usage:     "Delete an attribute definition",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{groupFlag()},
				Action: func(c *cli.Context) error {
					name, err := requireArg(c, 0, "name")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewSchemaService(t).DeleteAttribute(ctx, c.Bool("group"), name)
					})
				},
			},
			{
				Name:      "add-class",
				Usage:     "Register an extra LDAP object class",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{groupFlag()},
				Action: func(c *cli.Context) error {
					name, err := requireArg(c, 0, "name")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewSchemaService(t).AddObjectClass(ctx, c.Bool("group"), name)
					})
				},
			},
			{
				Name:      "delete-class",
				Usage:     "Remove an extra LDAP object class",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{groupFlag()},
				Action: func(c *cli.Context) error {
					name, err := requireArg(c, 0, "name")
					if err != nil {
						return b.exit(err)
					}
					return b.run(c, func(ctx context.Context, t *Transport) (interface{}, error) {
						return okResult, NewSchemaService(t).DeleteObjectClass(ctx, c.Bool("group"), name)
					})
				},
			},
		},
	}
}

// Helpers

func requireArg(c *cli.Context, index int, name string) (string, error) {
	if c.NArg() <= index {
		return "", NewError(KindUsage, "missing required argument <%s>", name)
	}
	return c.Args().Get(index), nil
}

func requireIntArg(c *cli.Context, index int, name string) (int, error) {
	raw, err := requireArg(c, index, name)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewError(KindUsage, "argument <%s> must be an integer, got %q", name, raw)
	}
	return value, nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", WrapError(KindIO, err, "cannot read password from terminal")
	}
	return strings.TrimSpace(string(raw)), nil
}
