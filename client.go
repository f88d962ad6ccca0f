package neverliie

import (
	"context"
	"time"

	"github.com/Liiesl/NeverLiie/launch"
	"github.com/Liiesl/NeverLiie/transport"
)

// Ping reports whether the named peer currently answers a liveness probe.
// It does not distinguish "not running" from "running but unresponsive
// within the configured ping timeout" — both report false.
func (n *PeerNode) Ping(ctx context.Context, name string) bool {
	timeout := n.cfg.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := transport.Dial(dctx, name, n.cfg.SocketDir)
	if err != nil {
		return false
	}
	defer conn.Close()

	ch := newWireChannel(conn)
	if err := ch.Send(newRequestEnvelope(methodPing, nil, nil)); err != nil {
		return false
	}
	resp, err := recvWithContext(dctx, ch)
	return err == nil && resp.Kind == KindPong
}

// Wake launches the named peer from its registered launch descriptor, if
// it has one, and waits until it answers a ping or timeout elapses. If name
// already answers a ping, Wake returns immediately without spawning
// anything. If no registry entry exists, Wake returns a [*PeerOffline]
// error without attempting to launch. If an entry exists but its launch
// target no longer exists on disk, or spawning it fails outright, Wake
// prunes the stale entry from the registry and returns [*PeerOffline].
func (n *PeerNode) Wake(ctx context.Context, name string, timeout time.Duration) error {
	if n.Ping(ctx, name) {
		return nil
	}

	descriptor, ok := n.store.Get(name)
	if !ok {
		return &PeerOffline{Peer: name, Reason: "no registry entry"}
	}
	if !launch.TargetExists(descriptor) {
		n.store.Prune(name)
		return &PeerOffline{Peer: name, Reason: "launch target no longer exists on disk"}
	}
	if _, err := launch.Spawn(descriptor); err != nil {
		n.store.Prune(name)
		return &PeerOffline{Peer: name, Reason: err.Error()}
	}

	if timeout <= 0 {
		timeout = n.cfg.WakeTimeout
	}
	poll := n.cfg.WakePollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if n.Ping(ctx, name) {
			return nil
		}
		select {
		case <-ctx.Done():
			return &PeerOffline{Peer: name, Reason: ctx.Err().Error()}
		case <-time.After(poll):
		}
	}
	return &PeerOffline{Peer: name, Reason: "timed out waiting for peer to come up"}
}

// GetPeer returns a handle for calling operations exposed by the named
// peer. GetPeer performs no I/O; it is always safe to call, even for a peer
// that is not currently running.
func (n *PeerNode) GetPeer(name string) *Proxy {
	return &Proxy{node: n, peer: name}
}
