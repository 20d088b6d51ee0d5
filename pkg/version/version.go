package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// Set at build time with -ldflags:
	// -X github.com/lkarlslund/channelsync/pkg/version.Version=vX.Y.Z
	// -X github.com/lkarlslund/channelsync/pkg/version.Commit=<sha>
	// -X github.com/lkarlslund/channelsync/pkg/version.Date=<rfc3339>
	Version = "dev"
	Commit  = ""
	Date    = ""
)

const Component = "channelsync"

type Info struct {
	Version string
	Commit  string
	Date    string
	Dirty   bool
}

func Current() Info {
	info := Info{
		Version: strings.TrimSpace(Version),
		Commit:  strings.TrimSpace(Commit),
		Date:    strings.TrimSpace(Date),
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

func (i Info) String() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit[:min(12, len(i.Commit))])
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "+")
}

// Detailed is the text printed by the version command.
func Detailed() string {
	v := Current()
	out := fmt.Sprintf("%s %s", Component, v)
	if v.Date != "" {
		out += "\nBuilt: " + v.Date
	}
	return out
}
