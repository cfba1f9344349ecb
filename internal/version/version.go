package version

import (
	"fmt"
	"runtime"
)

var (
	version = "v0.0.1"
	// gitCommit is the git sha1 + dirty if build from a dirty git
	gitCommit = "none"
)

func GetVersion() string {
	return version
}

// BuildInfo describes the compiled time information.
type BuildInfo struct {
	Version   string `json:"version,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// String renders the build info on a single line for the version command.
func (b BuildInfo) String() string {
	return fmt.Sprintf("rollerderby %s (commit %s, %s)", b.Version, b.GitCommit, b.GoVersion)
}

// Get returns build info
func Get() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
	}
}
