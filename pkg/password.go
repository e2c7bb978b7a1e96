package lldapcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// DefaultPasswordTool is the external trusted binary that performs
// out-of-band password changes against the directory server.
const DefaultPasswordTool = "lldap_set_password"

// Runner executes an external command with the given stdin, returning its
// combined diagnostic output. It exists so tests can substitute a fake for
// the real binary.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin []byte) (output []byte, err error)
}

// PasswordSetter validates inputs and marshals them to the external
// password tool. The tool owns the actual credential change; this side only
// guarantees input hygiene and subprocess stream discipline.
type PasswordSetter struct {
	tool      string
	baseURL   string
	token     func() string
	runner    Runner
	validator *Validator
	audit     zerolog.Logger
}

// NewPasswordSetter builds a PasswordSetter wired to the transport's token
// and validator. A nil runner uses the real subprocess runner.
func NewPasswordSetter(t *Transport, tool string, runner Runner) *PasswordSetter {
	if tool == "" {
		tool = DefaultPasswordTool
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &PasswordSetter{
		tool:      tool,
		baseURL:   t.config.URL,
		token:     t.Token,
		runner:    runner,
		validator: t.Validator(),
		audit:     t.audit,
	}
}

// Set changes the password for the given user. The new password travels
// over the subprocess's stdin, never through argv.
func (p *PasswordSetter) Set(ctx context.Context, userID, newPassword string) error {
	if err := p.validator.ValidateUsername(userID); err != nil {
		return err
	}
	if err := p.validator.ValidateStringInput(newPassword, "password"); err != nil {
		return err
	}
	if newPassword == "" {
		return NewError(KindUsage, "new password must not be empty")
	}

	args := []string{"--base-url", p.baseURL, "--token", p.token(), "--user-id", userID, "--password-from-stdin"}
	output, err := p.runner.Run(ctx, p.tool, args, []byte(newPassword+"\n"))
	if err != nil {
		p.audit.Warn().Str("event", "password_set_failed").Str("user", userID).Msg("external password tool failed")
		return WrapError(KindGeneric, err, "password tool failed: %s", string(output))
	}
	p.audit.Info().Str("event", "password_set").Str("user", userID).Msg("password updated")
	return nil
}

// execRunner runs the real subprocess. Stdin is written, flushed, and
// closed before waiting, and both output streams are captured even on
// non-zero exit so the child can never deadlock on a full pipe.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("cannot open stdin pipe: %w", err)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot start %s: %w", name, err)
	}
	if _, err := in.Write(stdin); err != nil {
		in.Close()
		_ = cmd.Wait()
		return out.Bytes(), fmt.Errorf("cannot write to %s stdin: %w", name, err)
	}
	if err := in.Close(); err != nil {
		_ = cmd.Wait()
		return out.Bytes(), fmt.Errorf("cannot close %s stdin: %w", name, err)
	}
	if err := cmd.Wait(); err != nil {
		return out.Bytes(), err
	}
	return out.Bytes(), nil
}
