package version

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	if Version != "dev" {
		t.Errorf("default Version = %q, want %q", Version, "dev")
	}
	if GitCommit != "unknown" {
		t.Errorf("default GitCommit = %q, want %q", GitCommit, "unknown")
	}
}

func TestInfo(t *testing.T) {
	if got := Info(); !strings.HasPrefix(got, "dev (unknown) built unknown, go") {
		t.Errorf("Info() = %q", got)
	}
}

func TestSSHClientVersion(t *testing.T) {
	if got := SSHClientVersion(); got != "SSH-2.0-portctl_dev" {
		t.Errorf("SSHClientVersion() = %q", got)
	}
}
