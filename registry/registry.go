// Package registry implements the shared on-disk mapping from peer name to
// launch descriptor that the Client Engine consults when waking a peer.
package registry

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/Liiesl/NeverLiie/obslog"
)

var logger = obslog.For("registry")

// LaunchDescriptor records how to spawn a peer that isn't currently running.
type LaunchDescriptor struct {
	Mode    string // "script" or "binary"
	Command []string
	Cwd     string

	// Extra preserves fields neither this package nor its callers know
	// about, so a read-modify-write cycle never drops data written by a
	// peer implementation in another language.
	Extra map[string]any
}

const (
	ModeScript = "script"
	ModeBinary = "binary"
)

func (d LaunchDescriptor) toMap() map[string]any {
	m := make(map[string]any, len(d.Extra)+3)
	for k, v := range d.Extra {
		m[k] = v
	}
	m["type"] = d.Mode
	m["cmd"] = d.Command
	m["cwd"] = d.Cwd
	return m
}

func descriptorFromMap(m map[string]any) LaunchDescriptor {
	d := LaunchDescriptor{Extra: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case "type":
			if s, ok := v.(string); ok {
				d.Mode = s
			}
		case "cmd":
			d.Command = toStringSlice(v)
		case "cwd":
			if s, ok := v.(string); ok {
				d.Cwd = s
			}
		default:
			d.Extra[k] = v
		}
	}
	return d
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// DefaultPath returns the fixed, host-user-scoped registry path,
// ~/.neverliie/registry.json, creating its parent directory if absent.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".neverliie")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "registry.json"), nil
}

// Store is the file-backed peer-name -> LaunchDescriptor mapping. The zero
// value is not usable; construct with NewStore.
type Store struct {
	Path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store { return &Store{Path: path} }

const (
	maxRetries   = 5
	staleLockAge = 2 * time.Second
)

// errWriteDenied is returned by the internal lock helper when another writer
// holds the lock; callers never see it directly, Put/Prune retry instead.
var errWriteDenied = errors.New("registry: write denied")

// Put upserts name -> d, preserving unknown fields of existing entries and
// unrelated entries. On lock contention it retries up to five times with
// jittered backoff, then fails silently (logging a warning rather than
// returning an error): last-writer-wins is acceptable because every peer
// re-asserts its own entry on every boot.
func (s *Store) Put(name string, d LaunchDescriptor) error {
	return s.withRetry(func() error {
		doc, err := s.readDoc()
		if err != nil {
			return err
		}
		doc[name] = d.toMap()
		return s.writeDoc(doc)
	})
}

// Get returns the entry for name, tolerating a missing or malformed file by
// treating either as empty.
func (s *Store) Get(name string) (LaunchDescriptor, bool) {
	doc, err := s.readDoc()
	if err != nil {
		return LaunchDescriptor{}, false
	}
	raw, ok := doc[name]
	if !ok {
		return LaunchDescriptor{}, false
	}
	return descriptorFromMap(raw), true
}

// Prune removes name's entry, under the same retry discipline as Put.
func (s *Store) Prune(name string) error {
	return s.withRetry(func() error {
		doc, err := s.readDoc()
		if err != nil {
			return err
		}
		delete(doc, name)
		return s.writeDoc(doc)
	})
}

// withRetry acquires the lock and runs mutate, retrying only on lock
// contention. A genuine I/O failure from mutate (disk full, permission
// denied) surfaces immediately. Contention that survives every retry is
// not reported as an error: the peer re-asserts its own entry on every
// boot, so a lost write here is indistinguishable from one that simply
// hasn't happened yet, and the caller has nothing useful to do with the
// failure beyond logging it.
func (s *Store) withRetry(mutate func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		unlock, err := s.lock()
		if err != nil {
			if !errors.Is(err, errWriteDenied) {
				return err
			}
			lastErr = err
			time.Sleep(backoff(attempt))
			continue
		}
		err = mutate()
		unlock()
		return err
	}
	logger.Warn().Err(lastErr).Int("attempts", maxRetries).Msg("registry: gave up waiting for lock, write dropped")
	return nil
}

func backoff(attempt int) time.Duration {
	base := time.Duration(10*(attempt+1)) * time.Millisecond
	return base + time.Duration(rand.Intn(10))*time.Millisecond
}

func (s *Store) lockPath() string { return s.Path + ".lock" }

// lock acquires the exclusive marker file that serializes writers. If a
// stale lock (older than staleLockAge) is found, it is removed and lock is
// retried once.
func (s *Store) lock() (unlock func(), err error) {
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err == nil {
		f.Close()
		return func() { os.Remove(s.lockPath()) }, nil
	}
	if !os.IsExist(err) {
		return nil, err
	}
	if info, statErr := os.Stat(s.lockPath()); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
		os.Remove(s.lockPath())
		f, err = os.OpenFile(s.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			f.Close()
			return func() { os.Remove(s.lockPath()) }, nil
		}
	}
	return nil, errWriteDenied
}

// readDoc reads and decodes the registry file. A missing file or malformed
// content is treated as an empty document, never an error.
func (s *Store) readDoc() (map[string]map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]map[string]any), nil
		}
		return nil, err
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return make(map[string]map[string]any), nil
	}
	return doc, nil
}

// writeDoc re-encodes the whole document and writes it in one non-atomic
// call. Concurrent readers may observe any legal historical state; this
// matches the spec, which does not mandate write-to-temp-then-rename.
func (s *Store) writeDoc(doc map[string]map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}
