package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestListenDialRoundTrip(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	ln, err := Listen("transport-test-a", "")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	conn, err := Dial(ctx, "transport-test-a", "")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("Accept never returned")
	}
}

func TestDialWithNoListenerFails(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "no-such-peer", ""); err == nil {
		t.Error("Dial with no listener bound returned nil error")
	}
}

func TestListenRecoversStaleSocketFile(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	path, err := Addr("transport-test-stale", "")
	if err != nil {
		t.Fatal(err)
	}
	// A leftover socket file with nothing listening on it, as if the
	// owning process died without cleaning up.
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ln, err := Listen("transport-test-stale", "")
	if err != nil {
		t.Fatalf("Listen did not recover a stale socket file: %v", err)
	}
	defer ln.Close()
}

func TestListenRejectsWhenAnotherListenerIsLive(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	ln, err := Listen("transport-test-live", "")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	if _, err := Listen("transport-test-live", ""); err == nil {
		t.Error("second Listen for the same live name returned nil error")
	}
}

func TestAddrHonorsSocketDirOverride(t *testing.T) {
	// Even with XDG_RUNTIME_DIR pointing elsewhere, an explicit socketDir
	// argument wins.
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	override := t.TempDir()

	path, err := Addr("transport-test-override", override)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != override {
		t.Errorf("Addr dir = %q, want %q", filepath.Dir(path), override)
	}

	ln, err := Listen("transport-test-override", override)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	conn, err := Dial(ctx, "transport-test-override", override)
	if err != nil {
		t.Fatalf("Dial with matching override: %v", err)
	}
	conn.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("Accept never returned")
	}

	if _, err := Dial(ctx, "transport-test-override", ""); err == nil {
		t.Error("Dial without the override found a listener bound under the overridden dir")
	}
}

func TestDirectPairIsConnected(t *testing.T) {
	a, b := Direct()
	defer a.Close()
	defer b.Close()

	msg := []byte("hello")
	done := make(chan struct{})
	go func() {
		a.Write(msg)
		close(done)
	}()

	buf := make([]byte, len(msg))
	if _, err := b.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	<-done
	if string(buf) != string(msg) {
		t.Errorf("Read %q, want %q", buf, msg)
	}
}
