package neverliie

import (
	"context"
	"fmt"
	"iter"

	"github.com/Liiesl/NeverLiie/transport"
)

// Stream represents one in-flight streaming call. Values arrive from All;
// Cancel asks the remote peer to stop producing early, over a separate
// short-lived connection carrying a __cancel_task__ request.
type Stream struct {
	proxy  *Proxy
	taskID string
	ch     *wireChannel
	done   bool
}

// Stream invokes method on the remote peer expecting a streaming response:
// it blocks until the STREAM_START frame arrives (confirming the remote
// handler accepted the call and minted a task id), then returns a [*Stream]
// the caller iterates with All.
func (p *Proxy) Stream(ctx context.Context, method string, args []any, kwargs map[string]any, opts ...CallOption) (*Stream, error) {
	cc := resolveCallConfig(opts)
	cctx := ctx
	if cc.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, cc.timeout)
		defer cancel()
	}

	conn, err := transport.Dial(cctx, p.peer, p.node.cfg.SocketDir)
	if err != nil {
		return nil, &PeerOffline{Peer: p.peer, Reason: err.Error()}
	}
	ch := newWireChannel(conn)
	if err := ch.Send(newRequestEnvelope(method, args, kwargs)); err != nil {
		conn.Close()
		return nil, &PeerOffline{Peer: p.peer, Reason: err.Error()}
	}

	env, err := recvWithContext(cctx, ch)
	if err != nil {
		if cctx.Err() != nil {
			return nil, &Timeout{Peer: p.peer, Method: method}
		}
		return nil, &PeerOffline{Peer: p.peer, Reason: err.Error()}
	}

	switch env.Kind {
	case KindStreamStart:
		var body streamStartPayload
		if err := decodeJSON(env.Payload, &body); err != nil {
			ch.Close()
			return nil, &ProtocolError{Detail: "malformed STREAM_START payload", Err: err}
		}
		return &Stream{proxy: p, taskID: body.TaskID, ch: ch}, nil
	case KindError:
		ch.Close()
		var body errorPayload
		decodeJSON(env.Payload, &body)
		return nil, &RemoteExecutionError{Peer: p.peer, Method: method, Message: body.Msg}
	default:
		ch.Close()
		return nil, &ProtocolError{Detail: "unexpected envelope kind " + env.Kind.String()}
	}
}

// Next returns the next value in the stream, or ok == false once the
// stream has ended (either normally, via STREAM_END, or because the
// connection closed). A non-nil error indicates the remote handler failed
// partway through (an ERROR frame took the place of the expected
// STREAM_END).
func (s *Stream) Next(ctx context.Context) (value any, ok bool, err error) {
	if s.done {
		return nil, false, nil
	}
	env, err := recvWithContext(ctx, s.ch)
	if err != nil {
		s.done = true
		return nil, false, err
	}
	switch env.Kind {
	case KindProgress:
		var body progressPayload
		if err := decodeJSON(env.Payload, &body); err != nil {
			s.done = true
			return nil, false, &ProtocolError{Detail: "malformed PROGRESS payload", Err: err}
		}
		return body.Data, true, nil
	case KindStreamEnd:
		s.done = true
		return nil, false, nil
	case KindError:
		s.done = true
		var body errorPayload
		decodeJSON(env.Payload, &body)
		return nil, false, &RemoteExecutionError{Peer: s.proxy.peer, Message: body.Msg}
	default:
		s.done = true
		return nil, false, &ProtocolError{Detail: "unexpected envelope kind " + env.Kind.String()}
	}
}

// All returns an iterator over every remaining value in the stream, usable
// with a range statement: for v, err := range st.All(ctx). It closes the
// stream's connection once iteration ends, whether by exhaustion, an
// error, or the range body breaking early.
func (s *Stream) All(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		defer s.ch.Close()
		for {
			v, ok, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Cancel asks the remote peer to stop producing values for this stream and
// marks the stream done, closing its original connection. It is safe to
// call more than once, and safe to call after the stream has already ended
// — the remote Task Table may have already removed the entry, in which
// case the cancel request itself is a no-op.
func (s *Stream) Cancel(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	defer s.ch.Close()

	conn, err := transport.Dial(ctx, s.proxy.peer, s.proxy.node.cfg.SocketDir)
	if err != nil {
		return &PeerOffline{Peer: s.proxy.peer, Reason: err.Error()}
	}
	defer conn.Close()

	ch := newWireChannel(conn)
	if err := ch.Send(newRequestEnvelope(methodCancelTask, nil, map[string]any{"task_id": s.taskID})); err != nil {
		return fmt.Errorf("cancel %s: %w", s.taskID, err)
	}
	_, err = ch.Recv() // server always replies OK; ignore its content
	return err
}

// Close releases the stream's connection without waiting for STREAM_END. It
// is safe to call after All has already consumed the stream to exhaustion,
// and after Cancel, which already closes the connection itself.
func (s *Stream) Close() error {
	s.done = true
	return s.ch.Close()
}
