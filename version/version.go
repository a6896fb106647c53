package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/squinkylabs/seq4/version.Version=$(git describe --dirty)"

var Version string

var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return hashFromSettings(info.Settings)
}()

func hashFromSettings(settings []debug.BuildSetting) string {
	modified := false
	for _, setting := range settings {
		if setting.Key == "vcs.modified" && setting.Value == "true" {
			modified = true
			break
		}
	}
	for _, setting := range settings {
		if setting.Key == "vcs.revision" {
			shortHash := setting.Value[:min(7, len(setting.Value))]
			if modified {
				return shortHash + "-dirty"
			}
			return shortHash
		}
	}
	return ""
}

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Hash != "" {
		return Hash
	}
	return "devel"
}()

// String is the line printed by "seq4 version".
func String() string {
	return fmt.Sprintf("seq4 %s (%s, %s/%s)", VersionOrHash, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
