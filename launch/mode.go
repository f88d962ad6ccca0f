// Package launch detects how the current process image was started and
// knows how to spawn a peer described by a registry.LaunchDescriptor.
package launch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Liiesl/NeverLiie/registry"
)

// DetectSelf builds the launch descriptor the current process should assert
// for itself in the registry: a standalone compiled binary describes itself
// directly; an ephemeral build (go run, or a test binary) describes itself
// as a "script" launched through the go tool, the closest Go-native
// analogue of an interpreted script run through its interpreter.
func DetectSelf() (registry.LaunchDescriptor, error) {
	exe, err := os.Executable()
	if err != nil {
		return registry.LaunchDescriptor{}, err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return registry.LaunchDescriptor{}, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return registry.LaunchDescriptor{}, err
	}

	if looksEphemeral(exe) {
		argv0, err := filepath.Abs(os.Args[0])
		if err != nil {
			return registry.LaunchDescriptor{}, err
		}
		goTool, err := goToolPath()
		if err != nil {
			return registry.LaunchDescriptor{}, err
		}
		return registry.LaunchDescriptor{
			Mode:    registry.ModeScript,
			Command: []string{goTool, "run", argv0},
			Cwd:     cwd,
		}, nil
	}

	return registry.LaunchDescriptor{
		Mode:    registry.ModeBinary,
		Command: []string{exe},
		Cwd:     filepath.Dir(exe),
	}, nil
}

// looksEphemeral reports whether exe lives in a temporary build output
// directory, the signature of `go run` and `go test` rather than a
// distributed binary.
func looksEphemeral(exe string) bool {
	dir := filepath.Dir(exe)
	base := filepath.Base(dir)
	return strings.Contains(exe, "go-build") ||
		strings.HasPrefix(base, "b0") ||
		strings.HasSuffix(exe, ".test")
}

func goToolPath() (string, error) {
	if gobin := os.Getenv("GOROOT"); gobin != "" {
		candidate := filepath.Join(gobin, "bin", "go")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "go", nil // rely on PATH resolution at spawn time
}
