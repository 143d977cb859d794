package report

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type gitCall struct {
	dir  string
	env  []string
	args string
}

func fakeGit(calls *[]gitCall, responses map[string]string, fail string) Runner {
	return func(_ context.Context, dir string, env []string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		*calls = append(*calls, gitCall{dir: dir, env: env, args: joined})
		if fail != "" && strings.HasPrefix(joined, fail) {
			return []byte("fatal: https://s3cr3t@example.com denied"), errors.New("exit status 128")
		}
		return []byte(responses[args[0]]), nil
	}
}

func TestNewGitPublisher_DisabledWithoutRemote(t *testing.T) {
	if p := NewGitPublisher(PublishConfig{}); p != nil {
		t.Errorf("NewGitPublisher() = %v, want nil", p)
	}
}

func TestGitPublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	var calls []gitCall
	p := NewGitPublisher(PublishConfig{Remote: "https://example.com/org/files.git", Token: "s3cr3t"}).
		WithRunner(fakeGit(&calls, map[string]string{"status": " M report.json\n"}, ""))

	if err := p.Publish(context.Background(), dir, "Update reports"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	want := []string{
		"init",
		"remote",
		"remote add origin https://example.com/org/files.git",
		"add -A",
		"status --porcelain",
		"-c user.name=checkit -c user.email=checkit@users.noreply.local commit -m Update reports",
		"push --force origin HEAD:master",
	}
	if len(calls) != len(want) {
		t.Fatalf("got %d git calls, want %d: %+v", len(calls), len(want), calls)
	}
	for i, w := range want {
		if calls[i].args != w {
			t.Errorf("call %d = %q, want %q", i, calls[i].args, w)
		}
		if calls[i].dir != dir {
			t.Errorf("call %d ran in %q, want %q", i, calls[i].dir, dir)
		}
	}

	// only the push carries credentials, and only in its environment
	for _, c := range calls {
		if strings.Contains(c.args, "s3cr3t") {
			t.Errorf("token in arguments of %q", c.args)
		}
		if !strings.HasPrefix(c.args, "push") && len(c.env) > 0 {
			t.Errorf("unexpected env for %q: %v", c.args, c.env)
		}
	}
	push := calls[len(calls)-1]
	wantHeader := "GIT_CONFIG_VALUE_0=Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("s3cr3t:"))
	if !slices.Contains(push.env, "GIT_CONFIG_KEY_0=http.extraHeader") || !slices.Contains(push.env, wantHeader) {
		t.Errorf("push env = %v", push.env)
	}
}

func TestGitPublisher_ReplacesStoredCredentials(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	var calls []gitCall
	p := NewGitPublisher(PublishConfig{Remote: "https://example.com/org/files.git", Token: "s3cr3t"}).
		WithRunner(fakeGit(&calls, map[string]string{"remote": "origin\n"}, ""))

	if err := p.Publish(context.Background(), dir, "msg"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if calls[1].args != "remote set-url origin https://example.com/org/files.git" {
		t.Errorf("remote call = %q", calls[1].args)
	}
}

func TestGitPublisher_SSHRemoteGetsNoAuthEnv(t *testing.T) {
	var calls []gitCall
	p := NewGitPublisher(PublishConfig{Remote: "git@example.com:org/files.git", Token: "s3cr3t"}).
		WithRunner(fakeGit(&calls, map[string]string{"status": "A x\n"}, ""))

	if err := p.Publish(context.Background(), t.TempDir(), "msg"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	for _, c := range calls {
		if len(c.env) > 0 {
			t.Errorf("unexpected env for %q: %v", c.args, c.env)
		}
	}
}

func TestGitPublisher_CommitErrorNamesSubcommand(t *testing.T) {
	var calls []gitCall
	p := NewGitPublisher(PublishConfig{Remote: "git@example.com:org/files.git"}).
		WithRunner(fakeGit(&calls, map[string]string{"status": "A x\n"}, "-c"))

	err := p.Publish(context.Background(), t.TempDir(), "msg")
	if err == nil || !strings.HasPrefix(err.Error(), "git commit:") {
		t.Errorf("Publish() error = %v, want it to start with \"git commit:\"", err)
	}
}

func TestSubcommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"push", "origin"}, "push"},
		{[]string{"-c", "a=b", "-c", "c=d", "commit", "-m", "x"}, "commit"},
		{[]string{"-c", "a=b"}, "git"},
		{nil, "git"},
	}
	for _, tt := range tests {
		if got := subcommand(tt.args); got != tt.want {
			t.Errorf("subcommand(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestGitPublisher_ExistingRepoNothingToCommit(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	var calls []gitCall
	p := NewGitPublisher(PublishConfig{Remote: "git@example.com:org/files.git", Branch: "main"}).
		WithRunner(fakeGit(&calls, map[string]string{"remote": "origin\n"}, ""))

	if err := p.Publish(context.Background(), dir, "msg"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, c := range calls {
		if c.args == "init" || strings.Contains(c.args, "commit") || strings.HasPrefix(c.args, "push") {
			t.Errorf("unexpected git call %q", c.args)
		}
	}
	if calls[1].args != "remote set-url origin git@example.com:org/files.git" {
		t.Errorf("remote call = %q", calls[1].args)
	}
}

func TestGitPublisher_ErrorRedactsToken(t *testing.T) {
	var calls []gitCall
	p := NewGitPublisher(PublishConfig{Remote: "https://example.com/x.git", Token: "s3cr3t"}).
		WithRunner(fakeGit(&calls, map[string]string{"status": "A x\n"}, "push"))

	err := p.Publish(context.Background(), t.TempDir(), "msg")
	if err == nil {
		t.Fatal("Publish() expected error")
	}
	if strings.Contains(err.Error(), "s3cr3t") {
		t.Errorf("error leaks token: %v", err)
	}
}
