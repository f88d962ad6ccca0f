// Package nodes provides support code for booting and tearing down
// NeverLiie peers in tests.
package nodes

import (
	"context"
	"fmt"
	"os"

	"github.com/Liiesl/NeverLiie"
	"github.com/Liiesl/NeverLiie/config"
)

// Pair is a pair of booted peers sharing an isolated registry, suitable for
// exercising client/server behavior against each other without touching a
// developer's real ~/.neverliie/registry.json.
type Pair struct {
	A, B *neverliie.PeerNode

	dir string
}

// Stop shuts down both peers and removes the pair's temporary registry
// directory.
func (p *Pair) Stop() error {
	aerr := p.A.Stop()
	berr := p.B.Stop()
	os.RemoveAll(p.dir)
	if aerr != nil {
		return aerr
	}
	return berr
}

// NewPair boots two peers, nameA and nameB, sharing one temporary registry
// file in a throwaway directory. NeverLiie peers always talk over a named
// UNIX socket, so this helper binds real sockets (in the default socket
// directory, not the throwaway one) rather than wiring an in-memory pipe.
func NewPair(ctx context.Context, nameA, nameB string) (*Pair, error) {
	dir, err := os.MkdirTemp("", "neverliie-test-*")
	if err != nil {
		return nil, err
	}

	regPath := dir + "/registry.json"
	opt := neverliie.WithRegistryPath(regPath)

	a, err := neverliie.Boot(ctx, nameA, opt)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("boot %q: %w", nameA, err)
	}
	b, err := neverliie.Boot(ctx, nameB, opt, neverliie.WithConfig(config.Default()))
	if err != nil {
		a.Stop()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("boot %q: %w", nameB, err)
	}

	return &Pair{A: a, B: b, dir: dir}, nil
}
