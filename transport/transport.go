// Package transport implements the host-local, duplex, stream-oriented
// channel that NeverLiie peers use to talk to each other. It is deliberately
// unaware of the envelope format: the codec supplies all framing, so this
// package only has to get bytes from one process to another.
package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// sockDir returns the directory that holds NeverLiie socket files, creating
// it if necessary. An explicit override takes precedence over the
// XDG_RUNTIME_DIR / os.TempDir() fallback chain; pass "" to use the
// fallback.
func sockDir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = os.TempDir()
		if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
			dir = runtimeDir
		}
		dir = filepath.Join(dir, "neverliie")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// Addr returns the socket path for the named peer. The name is embedded
// verbatim with the NeverLiie_ prefix, per the wire-level addressing
// convention. socketDir overrides the default runtime-dir-derived
// directory when non-empty.
func Addr(name, socketDir string) (string, error) {
	dir, err := sockDir(socketDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "NeverLiie_"+name+".sock"), nil
}

// A Listener accepts inbound connections for one peer name. Only one
// Listener may be bound to a given name at a time.
type Listener struct {
	ln   net.Listener
	path string
}

// Listen binds a listener for name. It fails immediately if the address is
// already in use by a live listener. socketDir overrides the default
// runtime-dir-derived directory when non-empty.
func Listen(name, socketDir string) (*Listener, error) {
	path, err := Addr(name, socketDir)
	if err != nil {
		return nil, fmt.Errorf("resolve address: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		if !isAddrInUse(err) {
			return nil, err
		}
		// The socket file may be stale (the owning process died without
		// cleaning up). Probe it before stealing the name.
		if probeDial(path) {
			return nil, err // a live listener answered: genuinely in use
		}
		os.Remove(path)
		ln, err = net.Listen("unix", path)
		if err != nil {
			return nil, err
		}
	}
	return &Listener{ln: ln, path: path}, nil
}

// Accept blocks until a connection arrives or the listener closes.
func (l *Listener) Accept() (net.Conn, error) { return l.ln.Accept() }

// Close closes the listener and removes its socket file. Idempotent.
func (l *Listener) Close() error {
	err := l.ln.Close()
	os.Remove(l.path)
	return err
}

// Dial connects to the named peer's listener. It fails fast (it does not
// retry) if no listener is bound. socketDir overrides the default
// runtime-dir-derived directory when non-empty.
func Dial(ctx context.Context, name, socketDir string) (net.Conn, error) {
	path, err := Addr(name, socketDir)
	if err != nil {
		return nil, fmt.Errorf("resolve address: %w", err)
	}
	d := net.Dialer{}
	return d.DialContext(ctx, "unix", path)
}

// probeDial reports whether a listener is actually alive at path.
func probeDial(path string) bool {
	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	if ok := asOpError(err, &opErr); !ok {
		return false
	}
	return opErr.Op == "listen"
}

func asOpError(err error, target **net.OpError) bool {
	for err != nil {
		if oe, ok := err.(*net.OpError); ok {
			*target = oe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
