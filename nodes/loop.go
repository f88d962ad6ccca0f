package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/Liiesl/NeverLiie"
)

// WaitReady blocks until every given peer answers a ping under its own
// name, or ctx ends first. Boot's accept loop starts asynchronously, so a
// test that calls another peer immediately after Boot can race the
// listener coming up; WaitReady closes that race without an arbitrary
// sleep.
func WaitReady(ctx context.Context, peers ...*neverliie.PeerNode) error {
	for _, p := range peers {
		if err := waitOne(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func waitOne(ctx context.Context, p *neverliie.PeerNode) error {
	for {
		if p.Ping(ctx, p.Name()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %q to accept connections: %w", p.Name(), ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
