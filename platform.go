package lgbmsys

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform is the operating-system family a target triple resolves to.
//
// Link naming and runtime-library selection switch on this value instead
// of re-testing the triple, so every branch is enumerated in one place.
type Platform int

// Platform families
const (
	PlatformUnknown Platform = iota
	PlatformApple
	PlatformLinux
	PlatformWindows
)

// String returns the platform family name.
func (p Platform) String() string {
	switch p {
	case PlatformApple:
		return "apple"
	case PlatformLinux:
		return "linux"
	case PlatformWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// GOOS returns the Go operating system name for the platform, or "" when
// the platform is unknown.
func (p Platform) GOOS() string {
	switch p {
	case PlatformApple:
		return "darwin"
	case PlatformLinux:
		return "linux"
	case PlatformWindows:
		return "windows"
	default:
		return ""
	}
}

// ResolvePlatform maps a target triple to its platform family.
//
// The families are checked in a fixed order (apple, linux, windows) so a
// triple resolves to exactly one of them.
func ResolvePlatform(triple string) Platform {
	switch {
	case strings.Contains(triple, "apple"):
		return PlatformApple
	case strings.Contains(triple, "linux"):
		return PlatformLinux
	case strings.Contains(triple, "windows"):
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// Arch is the CPU architecture component of a target triple.
type Arch int

// Architectures
const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchAArch64
	ArchX86
	ArchARM
)

// String returns the triple spelling of the architecture.
func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchAArch64:
		return "aarch64"
	case ArchX86:
		return "i686"
	case ArchARM:
		return "arm"
	default:
		return "unknown"
	}
}

// GOARCH returns the Go architecture name, or "" when unknown.
func (a Arch) GOARCH() string {
	switch a {
	case ArchX86_64:
		return "amd64"
	case ArchAArch64:
		return "arm64"
	case ArchX86:
		return "386"
	case ArchARM:
		return "arm"
	default:
		return ""
	}
}

// ResolveArch maps the first component of a target triple to an Arch.
func ResolveArch(triple string) Arch {
	first, _, _ := strings.Cut(triple, "-")
	switch first {
	case "x86_64", "amd64":
		return ArchX86_64
	case "aarch64", "arm64":
		return ArchAArch64
	case "i386", "i586", "i686", "x86":
		return ArchX86
	}
	if strings.HasPrefix(first, "arm") || strings.HasPrefix(first, "thumb") {
		return ArchARM
	}
	return ArchUnknown
}

// HostTriple returns a target triple describing the machine running the
// build, used when no target is configured.
func HostTriple() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	}

	switch runtime.GOOS {
	case "darwin":
		return arch + "-apple-darwin"
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return fmt.Sprintf("%s-unknown-%s", arch, runtime.GOOS)
	}
}
