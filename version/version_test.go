package version

import (
	"strings"
	"testing"
	"time"
)

func setVersion(t *testing.T, v, commit, branch, built string) {
	t.Helper()
	oldV, oldC, oldB, oldT := Version, GitCommit, GitBranch, BuildTime
	Version, GitCommit, GitBranch, BuildTime = v, commit, branch, built
	t.Cleanup(func() {
		Version, GitCommit, GitBranch, BuildTime = oldV, oldC, oldB, oldT
	})
}

func TestGet_Ldflags(t *testing.T) {
	setVersion(t, "v1.2.0", "abc1234", "main", "2026-01-02T03:04:05Z")

	info := Get()
	if info.Version != "v1.2.0" || info.GitCommit != "abc1234" {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.BuildDate.IsZero() || info.BuildDate.Year() != 2026 {
		t.Errorf("expected parsed build date, got %v", info.BuildDate)
	}
	if info.GoVersion == "" {
		t.Error("expected go version from build info")
	}
}

func TestGet_DevIsNotRelease(t *testing.T) {
	setVersion(t, "dev", "", "", "")
	if Get().IsRelease {
		t.Error("dev build must not be a release")
	}
}

func TestInfo_String(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"bare", Info{Version: "v1"}, "v1"},
		{"commit", Info{Version: "v1", GitCommit: "abc"}, "v1-abc"},
		{"main branch hidden", Info{Version: "v1", GitCommit: "abc", GitBranch: "main"}, "v1-abc"},
		{"feature branch", Info{Version: "v1", GitBranch: "pipe", IsDirty: true}, "v1-pipe-dirty"},
		{"dated", Info{Version: "v1", BuildDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}, "v1 (built 2026-03-01T00:00:00Z)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.String(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestInfo_Fields(t *testing.T) {
	f := (&Info{Version: "v1", GoVersion: "go1.24", GitCommit: "abc", IsDirty: true}).Fields()
	if f["version"] != "v1" || f["git_commit"] != "abc" || f["dirty"] != true {
		t.Errorf("unexpected fields: %v", f)
	}
	if _, ok := (&Info{Version: "v1"}).Fields()["git_commit"]; ok {
		t.Error("empty commit should be omitted")
	}
}

func TestUptime(t *testing.T) {
	if Uptime() <= 0 {
		t.Error("uptime should be positive")
	}
	if !strings.HasPrefix(shortCommit("0123456789abcdef"), "0123456") || len(shortCommit("0123456789")) != 7 {
		t.Error("commit should be shortened to 7 characters")
	}
}
