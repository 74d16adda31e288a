//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Test

const genDir = "gen"

func outDir() string {
	if dir := os.Getenv("OUT_DIR"); dir != "" {
		return dir
	}
	return genDir
}

// Test runs the unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Integration builds the testdata LightGBM tree with the real cmake
func Integration() error {
	return sh.RunWithV(map[string]string{"LGBM_INTEGRATION": "1"},
		"go", "test", "-run", "Integration", "-v", ".")
}

// Build runs the full pipeline into $OUT_DIR (default ./gen)
func Build() error {
	mg.Deps(Test)
	return sh.RunWithV(map[string]string{"OUT_DIR": outDir()},
		"go", "run", "./cmd/lgbm-build", "build")
}

// Plan prints the link directives for $TARGET
func Plan() error {
	return sh.RunWithV(map[string]string{"OUT_DIR": outDir()},
		"go", "run", "./cmd/lgbm-build", "plan")
}

// Clean removes generated output
func Clean() error {
	return sh.Rm(genDir)
}
