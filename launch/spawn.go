package launch

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/Liiesl/NeverLiie/obslog"
	"github.com/Liiesl/NeverLiie/registry"
)

var logger = obslog.For("launch")

// TargetExists reports whether the file Spawn would execute for d is still
// present on disk. For a bare binary descriptor the target is Command[0];
// for an interpreter-plus-script descriptor (e.g. "/bin/sh script.sh", or
// the go tool's "go run argv0") it is the last element, since the leading
// elements name the interpreter rather than the peer itself.
func TargetExists(d registry.LaunchDescriptor) bool {
	if len(d.Command) == 0 {
		return false
	}
	target := d.Command[0]
	if len(d.Command) > 1 {
		target = d.Command[len(d.Command)-1]
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

// Spawn starts the peer described by d as a detached process: no stdio
// inherited and its own process group. Spawn never waits on (or reaps) the
// child, which outlives the calling process.
//
// d is taken by value, already fully resolved by the caller from a
// registry lookup, rather than captured from a variable a concurrent
// writer might still be mutating.
func Spawn(d registry.LaunchDescriptor) (*os.Process, error) {
	if len(d.Command) == 0 {
		return nil, fmt.Errorf("launch: empty command for mode %q", d.Mode)
	}

	cmd := exec.Command(d.Command[0], d.Command[1:]...)
	cmd.Dir = d.Cwd
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch: spawn %v: %w", d.Command, err)
	}

	proc := cmd.Process
	logger.Debug().Strs("cmd", d.Command).Int("pid", proc.Pid).Msg("spawned detached peer")

	// Detach: never wait on or reap this child. The handle is not released,
	// so Pid/Signal stay usable by callers that want to probe liveness later.
	return proc, nil
}
