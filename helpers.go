package lgbmsys

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a fatal pipeline failure.
type ErrorKind int

// Error kinds
const (
	// KindEnvironment means a required configuration value is absent or invalid.
	KindEnvironment ErrorKind = iota + 1
	// KindFilesystem means a copy, create, read or write failed.
	KindFilesystem
	// KindTool means an external tool or the header parser reported failure
	// or could not be found.
	KindTool
)

// String returns the kind name used in diagnostics.
func (k ErrorKind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindFilesystem:
		return "filesystem"
	case KindTool:
		return "tool"
	default:
		return "unknown"
	}
}

// StepError is the single diagnostic produced when a pipeline step fails.
//
// It names the failing step, carries the error kind, and keeps any output
// captured from the external tool so the user sees what the tool reported.
type StepError struct {
	Step   string
	Kind   ErrorKind
	Output []string
	Err    error
}

// Error formats the failure the same way for every step:
//
//	configure failed (tool error): exit status 1
//
//	Build output:
//	CMake Error at CMakeLists.txt:1 ...
func (e *StepError) Error() string {
	var prefix string
	if e.Err != nil {
		prefix = fmt.Sprintf("%s failed (%s error): %v", e.Step, e.Kind, e.Err)
	} else {
		prefix = fmt.Sprintf("%s failed (%s error)", e.Step, e.Kind)
	}

	outputStr := strings.TrimSpace(strings.Join(e.Output, "\n"))
	if outputStr != "" {
		return fmt.Sprintf("%s\n\nBuild output:\n%s", prefix, outputStr)
	}

	return prefix
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

func envError(step string, err error) error {
	return &StepError{Step: step, Kind: KindEnvironment, Err: err}
}

func fsError(step string, err error) error {
	return &StepError{Step: step, Kind: KindFilesystem, Err: err}
}

func toolError(step string, output []string, err error) error {
	return &StepError{Step: step, Kind: KindTool, Output: output, Err: err}
}

// KindOf returns the kind of the first StepError in err's chain, or 0 when
// err carries none.
func KindOf(err error) ErrorKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	return 0
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	var result []string

	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result
}
