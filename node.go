package neverliie

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/creachadair/taskgroup"
	"github.com/rs/zerolog"

	"github.com/Liiesl/NeverLiie/config"
	"github.com/Liiesl/NeverLiie/registry"
	"github.com/Liiesl/NeverLiie/stream"
	"github.com/Liiesl/NeverLiie/transport"
)

// reserved method names handled by the dispatch loop itself, never looked
// up in the Exposed Operation Table.
const (
	methodPing       = "__ping__"
	methodCancelTask = "__cancel_task__"
)

// ValidatePeerName reports whether name is usable as a peer name: non-empty
// and containing only characters that are safe in a UNIX socket filename.
func ValidatePeerName(name string) error {
	if name == "" {
		return errors.New("neverliie: peer name must not be empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			continue
		default:
			return fmt.Errorf("neverliie: peer name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// PeerNode is a process singleton that is simultaneously an RPC server
// exposing named operations and an RPC client calling other peers' named
// operations. A zero PeerNode is not usable; construct one with [Boot].
type PeerNode struct {
	name string
	cfg  config.Config

	running atomic.Bool

	listener *transport.Listener
	tasks    *taskgroup.Group

	mu       sync.RWMutex
	handlers map[string]*boundHandler

	taskTable *taskTable
	store     *registry.Store

	log zerolog.Logger
}

// acceptLoop accepts inbound connections until the listener closes.
func (n *PeerNode) acceptLoop() error {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		n.tasks.Go(func() error {
			n.serveConn(conn)
			return nil
		})
	}
}

// Expose registers fn as the handler for method. fn must be a [UnaryFunc],
// a [StreamFunc], or a plain function satisfying one of those shapes. It is
// safe to call while the peer is running. Passing fn == nil removes any
// handler for method.
func (n *PeerNode) Expose(method string, fn any) error {
	if method == methodPing || method == methodCancelTask {
		return fmt.Errorf("neverliie: %q is a reserved method name", method)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if fn == nil {
		delete(n.handlers, method)
		return nil
	}

	switch h := fn.(type) {
	case UnaryFunc:
		n.handlers[method] = &boundHandler{unary: h}
	case StreamFunc:
		n.handlers[method] = &boundHandler{stream: h}
	case func(context.Context, *Request) (any, error):
		n.handlers[method] = &boundHandler{unary: UnaryFunc(h)}
	case func(context.Context, *Request) (stream.Producer, error):
		n.handlers[method] = &boundHandler{stream: StreamFunc(h)}
	default:
		return fmt.Errorf("neverliie: Expose: unsupported handler type %T", fn)
	}
	return nil
}

func (n *PeerNode) handlerFor(method string) (*boundHandler, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	h, ok := n.handlers[method]
	return h, ok
}

// Name returns the peer name this node was booted as.
func (n *PeerNode) Name() string { return n.name }

// Metrics returns the process-wide activity counters (envelopes sent and
// received, calls in and out, streams, cancellations). The map is shared
// across every PeerNode in the process, matching expvar's own process-wide
// publication model.
func (n *PeerNode) Metrics() *expvar.Map { return rootMetrics.emap }

// Stop shuts the peer down: it stops accepting connections, cancels every
// in-flight streaming task, and waits for all server goroutines to exit.
// After Stop returns it is no longer safe to call Expose or the accept loop
// methods; the registry entry is left in place (a later Boot under the same
// name overwrites it).
func (n *PeerNode) Stop() error {
	if !n.running.CompareAndSwap(true, false) {
		return nil // already stopped
	}
	n.listener.Close()
	n.taskTable.removeAll()
	n.tasks.Wait()
	return nil
}
