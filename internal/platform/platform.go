// Package platform holds the per-operating-system request identity used by
// the navigation collaborator: the User-Agent string sent with every
// request, and the launch arguments a browser-backed collaborator would
// start with.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform enumerates the supported operating systems.
type Platform string

const (
	Linux   Platform = "linux"
	Darwin  Platform = "darwin"
	Windows Platform = "windows"
)

// Profile is the request identity for one platform.
type Profile struct {
	Platform   Platform
	UserAgent  string
	LaunchArgs []string
}

const chromeVersion = "137.0.0.0"

// baseLaunchArgs are shared by every platform.
var baseLaunchArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
}

var profiles = map[Platform]Profile{
	Linux: {
		Platform:  Linux,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + chromeVersion + " Safari/537.36",
	},
	Darwin: {
		Platform:  Darwin,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + chromeVersion + " Safari/537.36",
	},
	Windows: {
		Platform:  Windows,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + chromeVersion + " Safari/537.36",
	},
}

// Parse resolves a platform name. Empty selects Current().
func Parse(name string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return Current(), nil
	case Linux, Darwin, Windows:
		return p, nil
	case "macos", "mac", "osx":
		return Darwin, nil
	default:
		return "", fmt.Errorf("platform: unsupported %q (want linux, darwin or windows)", name)
	}
}

// Current maps runtime.GOOS to a platform, defaulting to Linux.
func Current() Platform {
	switch runtime.GOOS {
	case "darwin":
		return Darwin
	case "windows":
		return Windows
	}
	return Linux
}

// For returns the profile of p. Headless adds the headless flag to the
// launch arguments. The returned slices are copies.
func For(p Platform, headless bool) Profile {
	prof, ok := profiles[p]
	if !ok {
		prof = profiles[Linux]
	}
	args := append([]string(nil), baseLaunchArgs...)
	if headless {
		args = append(args, "--headless=new")
	}
	args = append(args, "--user-agent="+prof.UserAgent)
	prof.LaunchArgs = args
	return prof
}

// WithUserAgent returns a copy of prof that advertises ua instead. Empty ua
// leaves prof unchanged.
func (prof Profile) WithUserAgent(ua string) Profile {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return prof
	}
	prof.UserAgent = ua
	args := make([]string, 0, len(prof.LaunchArgs))
	for _, a := range prof.LaunchArgs {
		if strings.HasPrefix(a, "--user-agent=") {
			a = "--user-agent=" + ua
		}
		args = append(args, a)
	}
	prof.LaunchArgs = args
	return prof
}
