package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Publisher ships the details directory somewhere readers can see it.
// Failures are advisory: the emitter logs them and moves on.
type Publisher interface {
	Publish(ctx context.Context, dir, message string) error
}

// Runner executes a git command in dir with env appended to the process
// environment and returns its combined output.
type Runner func(ctx context.Context, dir string, env []string, args ...string) ([]byte, error)

func execGit(ctx context.Context, dir string, env []string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

type PublishConfig struct {
	Remote string // https or ssh URL; empty disables publishing
	Branch string
	Token  string // sent as an auth header to https remotes, never stored
	Author string
}

// GitPublisher commits the directory as its own repository and force-pushes
// it to the configured remote.
type GitPublisher struct {
	cfg PublishConfig
	run Runner
}

// NewGitPublisher returns nil when no remote is configured.
func NewGitPublisher(cfg PublishConfig) *GitPublisher {
	if cfg.Remote == "" {
		return nil
	}
	if cfg.Branch == "" {
		cfg.Branch = "master"
	}
	if cfg.Author == "" {
		cfg.Author = "checkit"
	}
	return &GitPublisher{cfg: cfg, run: execGit}
}

// WithRunner replaces the git executor.
func (p *GitPublisher) WithRunner(r Runner) *GitPublisher {
	p.run = r
	return p
}

func (p *GitPublisher) Publish(ctx context.Context, dir, message string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if err := p.git(ctx, dir, "init"); err != nil {
			return err
		}
	}

	out, err := p.run(ctx, dir, nil, "remote")
	if err != nil {
		return fmt.Errorf("git remote: %w: %s", err, redact(out, p.cfg.Token))
	}
	verb := "add"
	for _, name := range strings.Fields(string(out)) {
		if name == "origin" {
			verb = "set-url"
		}
	}
	// set-url also scrubs credentials an older run may have left in .git/config
	if err := p.git(ctx, dir, "remote", verb, "origin", p.cfg.Remote); err != nil {
		return err
	}

	if err := p.git(ctx, dir, "add", "-A"); err != nil {
		return err
	}
	status, err := p.run(ctx, dir, nil, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}
	if len(bytes.TrimSpace(status)) == 0 {
		return nil
	}

	email := p.cfg.Author + "@users.noreply.local"
	if err := p.git(ctx, dir,
		"-c", "user.name="+p.cfg.Author, "-c", "user.email="+email,
		"commit", "-m", message); err != nil {
		return err
	}
	return p.gitEnv(ctx, dir, p.authEnv(), "push", "--force", "origin", "HEAD:"+p.cfg.Branch)
}

func (p *GitPublisher) git(ctx context.Context, dir string, args ...string) error {
	return p.gitEnv(ctx, dir, nil, args...)
}

func (p *GitPublisher) gitEnv(ctx context.Context, dir string, env []string, args ...string) error {
	out, err := p.run(ctx, dir, env, args...)
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", subcommand(args), err, redact(out, p.cfg.Token))
	}
	return nil
}

// authEnv passes the token through git's environment config for one
// command, so it never lands in .git/config or the argument list.
func (p *GitPublisher) authEnv() []string {
	if p.cfg.Token == "" || !strings.HasPrefix(p.cfg.Remote, "https://") {
		return nil
	}
	cred := base64.StdEncoding.EncodeToString([]byte(p.cfg.Token + ":"))
	return []string{
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraHeader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic " + cred,
		"GIT_TERMINAL_PROMPT=0",
	}
}

// subcommand skips leading "-c key=value" pairs.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		return args[i]
	}
	return "git"
}

func redact(out []byte, token string) string {
	s := strings.TrimSpace(string(out))
	if token != "" {
		s = strings.ReplaceAll(s, token, "***")
	}
	return s
}
