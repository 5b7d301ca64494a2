//go:build mage

// Package main provides build targets for the depprop project using Mage.
//
// Usage:
//
//	mage build           Compile propctl binary to bin/
//	mage test            Run all tests
//	mage testUnit        Run only unit tests (-short, skips the binary tests)
//	mage testIntegration Run only the propctl binary tests
//	mage lint            Run golangci-lint
//	mage clean           Remove build artifacts
//	mage install         Install propctl to GOPATH/bin
//	mage stats           Print Go LOC per package as JSON
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "propctl"
	binaryDir  = "bin"
	cmdDir     = "./cmd/propctl"
	versionVar = "github.com/mesh-intelligence/depprop/internal/cli.Version"
)

// Build compiles the propctl binary to bin/.
// The version string comes from git describe when available.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := gitVersion(); v != "" {
		args = append(args, "-ldflags", fmt.Sprintf("-X %s=%s", versionVar, v))
	}
	return sh.RunV("go", append(args, cmdDir)...)
}

func gitVersion() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(out), "v")
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestUnit runs tests in short mode.
func TestUnit() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// TestIntegration runs the tests that build and exercise the propctl binary.
func TestIntegration() error {
	return sh.RunV("go", "test", "-run", "Binary", cmdDir)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
