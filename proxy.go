package neverliie

import (
	"context"
	"time"

	"github.com/Liiesl/NeverLiie/transport"
)

// Proxy is a lightweight, reusable handle for calling operations exposed by
// one remote peer. A Proxy holds no connection state; every Call or Stream
// dials a fresh connection that lives exactly as long as that one call.
type Proxy struct {
	node *PeerNode
	peer string
}

// Peer returns the name of the remote peer this Proxy addresses.
func (p *Proxy) Peer() string { return p.peer }

// Call invokes method on the remote peer with the given positional args and
// keyword args, and blocks until ctx ends or a response arrives. Call
// reports a [*RemoteExecutionError] if the remote handler returned an
// error, a [*PeerOffline] error if the peer could not be reached, and a
// [*Timeout] error if a WithTimeout budget elapsed first.
func (p *Proxy) Call(ctx context.Context, method string, args []any, kwargs map[string]any, opts ...CallOption) (any, error) {
	rootMetrics.callOut.Add(1)
	rootMetrics.callsPending.Add(1)
	defer rootMetrics.callsPending.Add(-1)

	cc := resolveCallConfig(opts)
	cctx := ctx
	if cc.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, cc.timeout)
		defer cancel()
	}

	conn, err := transport.Dial(cctx, p.peer, p.node.cfg.SocketDir)
	if err != nil {
		rootMetrics.callOutErr.Add(1)
		return nil, &PeerOffline{Peer: p.peer, Reason: err.Error()}
	}
	defer conn.Close()

	ch := newWireChannel(conn)
	if err := ch.Send(newRequestEnvelope(method, args, kwargs)); err != nil {
		rootMetrics.callOutErr.Add(1)
		return nil, &PeerOffline{Peer: p.peer, Reason: err.Error()}
	}

	env, err := recvWithContext(cctx, ch)
	if err != nil {
		rootMetrics.callOutErr.Add(1)
		if cctx.Err() != nil {
			return nil, &Timeout{Peer: p.peer, Method: method}
		}
		return nil, &PeerOffline{Peer: p.peer, Reason: err.Error()}
	}

	switch env.Kind {
	case KindOK:
		var body okPayload
		if err := decodeJSON(env.Payload, &body); err != nil {
			rootMetrics.callOutErr.Add(1)
			return nil, &ProtocolError{Detail: "malformed OK payload", Err: err}
		}
		return body.Data, nil
	case KindError:
		rootMetrics.callOutErr.Add(1)
		var body errorPayload
		if err := decodeJSON(env.Payload, &body); err != nil {
			return nil, &ProtocolError{Detail: "malformed ERROR payload", Err: err}
		}
		return nil, &RemoteExecutionError{Peer: p.peer, Method: method, Message: body.Msg}
	default:
		rootMetrics.callOutErr.Add(1)
		return nil, &ProtocolError{Detail: "unexpected envelope kind " + env.Kind.String()}
	}
}

// CallOrWake is a layered convenience composing Ping, Wake, and Call: if the
// peer is not currently reachable it is launched from its registry entry
// and awaited before the call proceeds. It is never invoked implicitly by
// Call; callers that want the original implicit-launch behavior opt in to
// it explicitly by calling this instead.
func (p *Proxy) CallOrWake(ctx context.Context, method string, args []any, kwargs map[string]any, wakeTimeout time.Duration, opts ...CallOption) (any, error) {
	if !p.node.Ping(ctx, p.peer) {
		if err := p.node.Wake(ctx, p.peer, wakeTimeout); err != nil {
			return nil, err
		}
	}
	return p.Call(ctx, method, args, kwargs, opts...)
}

// recvWithContext receives the next envelope on ch, or returns ctx's error
// if ctx ends first. The underlying Recv is not itself cancellable (the
// connection has no deadline), so on cancellation we close the connection
// out from under the blocked read to unblock it.
func recvWithContext(ctx context.Context, ch *wireChannel) (*Envelope, error) {
	type result struct {
		env *Envelope
		err error
	}
	done := make(chan result, 1)
	go func() {
		env, err := ch.Recv()
		done <- result{env, err}
	}()

	select {
	case r := <-done:
		return r.env, r.err
	case <-ctx.Done():
		ch.Close()
		<-done // the goroutine above always completes once the channel closes
		return nil, ctx.Err()
	}
}
