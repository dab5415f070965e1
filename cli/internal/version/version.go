package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/satishbabariya/seedgraph/legacy"
)

// Set with -ldflags "-X .../cli/internal/version.Version=...".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string

	// Fixture file formats and document versions the binary can read.
	Formats  []string
	Document string
}

// Get returns version information. When the binary was built without
// ldflags, the commit falls back to the VCS stamp in the build info.
func Get() Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Formats:   legacy.Formats(),
		Document:  legacy.SupportedVersions,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "unknown":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildDate == "unknown":
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("seedgraph version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString includes build metadata and the fixture formats.
func (i Info) FullString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seedgraph version %s\n", i.Version)
	fmt.Fprintf(&b, "Build Date: %s\n", i.BuildDate)
	fmt.Fprintf(&b, "Git Commit: %s\n", i.GitCommit)
	fmt.Fprintf(&b, "Platform: %s\n", i.Platform)
	fmt.Fprintf(&b, "Go Version: %s\n", i.GoVersion)
	fmt.Fprintf(&b, "Fixture Files: %s (document %s)", strings.Join(i.Formats, ", "), i.Document)
	return b.String()
}

// Satisfies reports whether the binary meets a constraint such as
// ">= 0.1, < 1.0". Projects pin the CLI through the require_version key.
func (i Info) Satisfies(constraint string) (bool, error) {
	v, err := goversion.NewVersion(i.Version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", i.Version, err)
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c.Check(v), nil
}
