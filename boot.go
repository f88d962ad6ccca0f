package neverliie

import (
	"context"
	"fmt"
	"time"

	"github.com/creachadair/taskgroup"

	"github.com/Liiesl/NeverLiie/config"
	"github.com/Liiesl/NeverLiie/launch"
	"github.com/Liiesl/NeverLiie/obslog"
	"github.com/Liiesl/NeverLiie/registry"
	"github.com/Liiesl/NeverLiie/transport"
)

// Boot starts a peer named name: it verifies no other process already owns
// that name, registers this process's launch descriptor in the shared
// registry, binds a listener, and starts the accept loop. Boot does not
// block; call Stop to shut the peer down.
//
// If another live peer already answers for name, Boot returns
// [ErrAlreadyRunning] and the caller should treat this as a clean exit, not
// a failure — matching the singleton contract's "second launch is a no-op"
// requirement.
func Boot(ctx context.Context, name string, opts ...Option) (*PeerNode, error) {
	if err := ValidatePeerName(name); err != nil {
		return nil, err
	}

	bc := bootConfig{cfg: config.Default()}
	for _, opt := range opts {
		opt(&bc)
	}

	if alreadyRunning(ctx, name, bc.cfg.SocketDir) {
		return nil, ErrAlreadyRunning
	}

	store, err := resolveRegistryStore(bc)
	if err != nil {
		return nil, err
	}

	descriptor, err := launch.DetectSelf()
	if err != nil {
		return nil, &LocalIOError{Op: "detect launch descriptor", Err: err}
	}
	if err := store.Put(name, descriptor); err != nil {
		// Fail soft: a peer that could not register itself still serves.
		obslog.For("node").Warn().Err(&LocalIOError{Op: "register peer", Err: err}).Str("peer", name).Msg("registry write failed")
	}

	ln, err := transport.Listen(name, bc.cfg.SocketDir)
	if err != nil {
		return nil, &ProtocolError{Detail: fmt.Sprintf("bind listener for %q", name), Err: err}
	}

	n := &PeerNode{
		name:      name,
		cfg:       bc.cfg,
		listener:  ln,
		tasks:     taskgroup.New(nil),
		handlers:  make(map[string]*boundHandler),
		taskTable: newTaskTable(),
		store:     store,
		log:       obslog.For("node").With().Str("peer", name).Logger(),
	}
	n.running.Store(true)
	n.tasks.Go(n.acceptLoop)
	n.log.Info().Msg("peer booted")
	return n, nil
}

// Client builds a client-only [PeerNode]: it can Ping, Wake, and GetPeer,
// but exposes no operations of its own and binds no listener. It exists for
// tools like cmd/neverliie that need to talk to peers without becoming one
// themselves.
func Client(opts ...Option) (*PeerNode, error) {
	bc := bootConfig{cfg: config.Default()}
	for _, opt := range opts {
		opt(&bc)
	}
	store, err := resolveRegistryStore(bc)
	if err != nil {
		return nil, err
	}
	return &PeerNode{cfg: bc.cfg, store: store, log: obslog.For("client")}, nil
}

func resolveRegistryStore(bc bootConfig) (*registry.Store, error) {
	regPath := bc.registryPath
	if regPath == "" {
		regPath = bc.cfg.RegistryPath
	}
	if regPath == "" {
		p, err := registry.DefaultPath()
		if err != nil {
			return nil, &LocalIOError{Op: "resolve registry path", Err: err}
		}
		regPath = p
	}
	return registry.NewStore(regPath), nil
}

// alreadyRunning reports whether a live peer currently answers for name, by
// attempting a short-lived connection and a ping.
func alreadyRunning(ctx context.Context, name, socketDir string) bool {
	dctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	conn, err := transport.Dial(dctx, name, socketDir)
	if err != nil {
		return false
	}
	defer conn.Close()

	ch := newWireChannel(conn)
	if err := ch.Send(newRequestEnvelope(methodPing, nil, nil)); err != nil {
		return false
	}
	resp, err := ch.Recv()
	return err == nil && resp.Kind == KindPong
}
