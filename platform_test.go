package lgbmsys

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePlatform(t *testing.T) {
	testCases := []struct {
		triple   string
		expected Platform
	}{
		{"x86_64-apple-darwin", PlatformApple},
		{"aarch64-apple-darwin", PlatformApple},
		{"x86_64-unknown-linux-gnu", PlatformLinux},
		{"aarch64-unknown-linux-musl", PlatformLinux},
		{"x86_64-pc-windows-msvc", PlatformWindows},
		{"x86_64-pc-windows-gnu", PlatformWindows},
		{"wasm32-unknown-unknown", PlatformUnknown},
		{"x86_64-unknown-freebsd", PlatformUnknown},
		{"", PlatformUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.triple, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolvePlatform(tc.triple))
		})
	}
}

func TestResolveArch(t *testing.T) {
	testCases := []struct {
		triple   string
		expected Arch
		goarch   string
	}{
		{"x86_64-apple-darwin", ArchX86_64, "amd64"},
		{"aarch64-apple-darwin", ArchAArch64, "arm64"},
		{"arm64-apple-darwin", ArchAArch64, "arm64"},
		{"i686-pc-windows-msvc", ArchX86, "386"},
		{"armv7-unknown-linux-gnueabihf", ArchARM, "arm"},
		{"riscv64gc-unknown-linux-gnu", ArchUnknown, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.triple, func(t *testing.T) {
			arch := ResolveArch(tc.triple)
			assert.Equal(t, tc.expected, arch)
			assert.Equal(t, tc.goarch, arch.GOARCH())
		})
	}
}

func TestHostTripleResolves(t *testing.T) {
	switch runtime.GOARCH {
	case "amd64", "arm64", "386":
	default:
		t.Skipf("no triple spelling for GOARCH %s", runtime.GOARCH)
	}
	triple := HostTriple()
	assert.Equal(t, runtime.GOARCH, ResolveArch(triple).GOARCH(), "host triple %q", triple)
}
