package lgbmsys

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/mod/semver"
)

// ToolChecker is an optional interface for steps that require external tools.
//
// The pipeline calls CheckTools before Run so a missing tool fails fast
// with a clear message instead of an opaque exec error halfway through.
//
// # Example Implementation
//
//	func (c *CMakeConfigurator) RequiredTools() []ToolRequirement {
//	    return []ToolRequirement{
//	        {Name: "cmake", Purpose: "LightGBM native build"},
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the list of tools this step needs.
	RequiredTools() []ToolRequirement

	// CheckTools verifies that all required tools are available.
	//
	// Returns nil if all required tools are found, or an error describing
	// which tools are missing. Optional tools don't cause errors if missing.
	CheckTools(ctx context.Context) error
}

// ToolRequirement describes a build tool dependency.
//
// Required tool:
//
//	ToolRequirement{
//	    Name: "cmake",
//	    Purpose: "LightGBM native build",
//	}
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name: "c++",
//	    Alternatives: []string{"g++", "clang++"},
//	    Purpose: "C++ compiler",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cmake", "git").
	Name string

	// Alternatives are alternative tool names that can satisfy this requirement.
	Alternatives []string

	// Optional indicates this tool is optional and won't cause an error if missing.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// LookPathFunc resolves a tool name to a path, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

func checkToolWith(lookPath LookPathFunc, tool string) error {
	if _, err := lookPath(tool); err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available.
//
//   - Checks the primary tool name first
//   - If not found, tries each alternative tool in order
//   - Optional tools are checked but don't cause errors
//   - Returns all missing required tools in a single error
//
// Single missing tool:
//
//	cmake not found in PATH (required for: LightGBM native build)
//
// Multiple missing tools:
//
//	missing required tools: cmake (LightGBM native build), c++ (C++ compiler)
func CheckRequiredTools(requirements []ToolRequirement) error {
	return checkRequiredToolsWith(exec.LookPath, requirements)
}

func checkRequiredToolsWith(lookPath LookPathFunc, requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := checkToolWith(lookPath, req.Name) == nil

		if !found {
			for _, alt := range req.Alternatives {
				if checkToolWith(lookPath, alt) == nil {
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}

// MinCMakeVersion is the oldest CMake that configures LightGBM with every
// backend (the CUDA build needs 3.18).
const MinCMakeVersion = "3.18.0"

// CheckCMakeVersion runs `cmake --version` and fails when the reported
// version is older than minVersion.
func CheckCMakeVersion(ctx context.Context, runner CommandRunner, minVersion string) error {
	out, err := runner.Run(ctx, Command{Name: "cmake", Args: []string{"--version"}})
	if err != nil {
		return fmt.Errorf("failed to get cmake version: %w", err)
	}

	version, err := parseCMakeVersion(string(out))
	if err != nil {
		return err
	}

	if semver.Compare("v"+version, "v"+minVersion) < 0 {
		return fmt.Errorf("cmake version %s is too old, minimum required is %s", version, minVersion)
	}

	return nil
}

// parseCMakeVersion extracts the version from output like
// "cmake version 3.28.1" or "cmake3 version 3.20.2-rc1".
func parseCMakeVersion(out string) (string, error) {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	fields := strings.Fields(firstLine)
	if len(fields) < 3 || fields[1] != "version" {
		return "", fmt.Errorf("unexpected cmake version output: %s", firstLine)
	}

	version := fields[2]
	if !semver.IsValid("v" + version) {
		return "", fmt.Errorf("unexpected cmake version %q", version)
	}
	return version, nil
}
