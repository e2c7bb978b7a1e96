package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	lldapcli "github.com/madeinoz67/lldap-cli/pkg"
)

const version = "0.3.0"

func main() {
	audit := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(zerolog.WarnLevel)
	if os.Getenv("LLDAP_VERBOSE") != "" {
		audit = audit.Level(zerolog.DebugLevel)
	}

	builder := lldapcli.NewCLIBuilder(audit)

	app := &cli.App{
		Name:    "lldap-cli",
		Usage:   "Manage users, groups, and schema of an LLDAP directory server",
		Version: version,
	}

	builder.RegisterCommands(app)

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(lldapcli.ExitCode(err))
	}
}
