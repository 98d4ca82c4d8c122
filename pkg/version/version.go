// Package version carries build metadata for portctl.
package version

import (
	"fmt"
	"runtime"
)

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/newtron-network/portctl/pkg/version.Version=v1.0.0 \
//	  -X github.com/newtron-network/portctl/pkg/version.GitCommit=abc1234 \
//	  -X github.com/newtron-network/portctl/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return fmt.Sprintf("%s (%s) built %s, %s %s/%s",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// SSHClientVersion is the identification string portctl presents to
// switches, visible in their session logs.
func SSHClientVersion() string {
	return "SSH-2.0-portctl_" + Version
}
