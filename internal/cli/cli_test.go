package cli

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dockhand/dockhand/pkg/config"
	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/host"
	"github.com/dockhand/dockhand/pkg/pipeline"
	"github.com/dockhand/dockhand/pkg/report"
	"github.com/dockhand/dockhand/pkg/repourl"
)

func testCLI() *CLI {
	return New(io.Discard, log.InfoLevel)
}

func TestRootCommandSubcommands(t *testing.T) {
	root := testCLI().RootCommand()

	want := []string{"up", "plan", "repo", "keys", "doctor", "report", "completion"}
	got := map[string]bool{}
	for _, cmd := range root.Commands() {
		got[cmd.Name()] = true
	}

	for _, name := range want {
		if !got[name] {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
	if !root.SilenceUsage {
		t.Error("usage spam on errors should be silenced")
	}
}

func TestRootCommandVerboseFlag(t *testing.T) {
	root := testCLI().RootCommand()

	flag := root.PersistentFlags().Lookup("verbose")
	if flag == nil {
		t.Fatal("missing persistent --verbose flag")
	}
	if flag.Shorthand != "v" {
		t.Errorf("verbose shorthand = %q, want %q", flag.Shorthand, "v")
	}
}

func TestUpCommandFlags(t *testing.T) {
	root := testCLI().RootCommand()
	up, _, err := root.Find([]string{"up"})
	if err != nil {
		t.Fatalf("find up: %v", err)
	}

	for _, name := range []string{"user", "skip-clone", "skip-firewall", "skip-wireguard", "yes", "dry-run", "wg-keys"} {
		if up.Flags().Lookup(name) == nil {
			t.Errorf("up is missing flag --%s", name)
		}
	}
}

func TestResolveRepoPriority(t *testing.T) {
	c := testCLI()
	cfg := config.Default()
	cfg.Repo.URL = "https://github.com/acme/from-config"

	t.Run("argument wins", func(t *testing.T) {
		t.Setenv(config.EnvRepoURL, "https://github.com/acme/from-env")
		repo, err := c.resolveRepo("https://github.com/acme/widgets", cfg)
		if err != nil {
			t.Fatalf("resolveRepo() error = %v", err)
		}
		if repo.Name != "widgets" {
			t.Errorf("Name = %q, want %q", repo.Name, "widgets")
		}
	})

	t.Run("environment beats config", func(t *testing.T) {
		t.Setenv(config.EnvRepoURL, "https://github.com/acme/from-env")
		repo, err := c.resolveRepo("", cfg)
		if err != nil {
			t.Fatalf("resolveRepo() error = %v", err)
		}
		if repo.Name != "from-env" {
			t.Errorf("Name = %q, want %q", repo.Name, "from-env")
		}
	})

	t.Run("config is the last fallback", func(t *testing.T) {
		t.Setenv(config.EnvRepoURL, "")
		repo, err := c.resolveRepo("", cfg)
		if err != nil {
			t.Fatalf("resolveRepo() error = %v", err)
		}
		if repo.Name != "from-config" {
			t.Errorf("Name = %q, want %q", repo.Name, "from-config")
		}
	})

	t.Run("empty chain is fatal", func(t *testing.T) {
		t.Setenv(config.EnvRepoURL, "")
		_, err := c.resolveRepo("", config.Default())
		if !errors.Is(err, errors.ErrCodeInvalidURL) {
			t.Fatalf("error = %v, want %s", err, errors.ErrCodeInvalidURL)
		}
	})

	t.Run("unrecognized URL passes through", func(t *testing.T) {
		repo, err := c.resolveRepo("https://example.com/team/app.git", cfg)
		if err != nil {
			t.Fatalf("resolveRepo() error = %v", err)
		}
		if repo.Recognized() {
			t.Error("example.com URL should not be recognized")
		}
		if repo.HTTPS != "https://example.com/team/app.git" {
			t.Errorf("HTTPS = %q, want the raw input", repo.HTTPS)
		}
	})
}

func TestBuildReportOutcomes(t *testing.T) {
	repo, err := repourl.Normalize("https://github.com/acme/widgets")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	bc := &pipeline.Context{
		Host:    host.Info{PrettyName: "Ubuntu 24.04.1 LTS"},
		Account: host.Account{Username: "deploy"},
		Repo:    repo,
		Branch:  "main",
		Notices: []string{"relog for docker group"},
	}
	results := []pipeline.StepResult{{ID: "platform", Title: "Platform gate", Status: pipeline.StatusOK}}
	started := time.Now().Add(-3 * time.Second)

	t.Run("success", func(t *testing.T) {
		rep := buildReport(bc, started, results, nil, false)
		if rep.Outcome != report.OutcomeSuccess {
			t.Errorf("Outcome = %q, want success", rep.Outcome)
		}
		if rep.ID == "" {
			t.Error("report should be assigned an ID")
		}
		if rep.Branch != "main" || rep.User != "deploy" {
			t.Errorf("report lost run facts: %+v", rep)
		}
		if rep.Elapsed() < 3*time.Second {
			t.Errorf("Elapsed = %v, want at least 3s", rep.Elapsed())
		}
	})

	t.Run("failure records the error", func(t *testing.T) {
		runErr := errors.New(errors.ErrCodeVerifyFailed, "docker engine unreachable")
		rep := buildReport(bc, started, results, runErr, false)
		if rep.Outcome != report.OutcomeFailed {
			t.Errorf("Outcome = %q, want failed", rep.Outcome)
		}
		if !strings.Contains(rep.Error, "docker engine unreachable") {
			t.Errorf("Error = %q, should carry the failure", rep.Error)
		}
	})

	t.Run("interruption wins over failure", func(t *testing.T) {
		runErr := errors.New(errors.ErrCodeVerifyFailed, "aborted mid-step")
		rep := buildReport(bc, started, results, runErr, true)
		if rep.Outcome != report.OutcomeInterrupted {
			t.Errorf("Outcome = %q, want interrupted", rep.Outcome)
		}
	})
}

func TestHostLabel(t *testing.T) {
	label := hostLabel(host.Info{PrettyName: "Ubuntu 24.04.1 LTS"})
	if !strings.HasPrefix(label, "Ubuntu 24.04.1 LTS") {
		t.Errorf("label = %q, want the distro name first", label)
	}

	label = hostLabel(host.Info{OS: "linux"})
	if !strings.HasPrefix(label, "linux") {
		t.Errorf("label = %q, want the OS fallback first", label)
	}
}
