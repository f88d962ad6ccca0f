package neverliie

import (
	"context"
	"fmt"
	"net"

	"github.com/Liiesl/NeverLiie/stream"
)

// serveConn handles exactly one client call: it reads a single REQUEST
// envelope, dispatches it, writes the response (OK/ERROR, or
// STREAM_START/PROGRESS*/STREAM_END), and closes the connection. The
// connection's lifetime is scoped to one call, matching the wire contract's
// per-call connection model — a streaming task that outlives this call is
// tracked in the Task Table and cancelled over a separate connection.
func (n *PeerNode) serveConn(conn net.Conn) {
	defer conn.Close()
	ch := newWireChannel(conn)

	env, err := ch.Recv()
	if err != nil {
		return // client hung up before sending a request, or sent garbage
	}
	rootMetrics.envelopesRecv.Add(1)

	if env.Kind != KindRequest {
		rootMetrics.envelopesDropped.Add(1)
		return
	}
	var body requestPayload
	if err := decodeJSON(env.Payload, &body); err != nil {
		ch.Send(newErrorEnvelope(fmt.Sprintf("malformed request: %v", err)))
		return
	}

	req := &Request{
		Method: body.Method,
		Args:   body.Args,
		Kwargs: stripMagicKwargs(body.Kwargs),
	}

	switch req.Method {
	case methodPing:
		ch.Send(newPongEnvelope())
	case methodCancelTask:
		n.dispatchCancel(req, ch)
	default:
		n.dispatchOperation(req, ch)
	}
}

// dispatchCancel handles __cancel_task__: it always replies OK, whether or
// not a matching task was found, because the caller has no useful recovery
// for "already finished" versus "never existed".
func (n *PeerNode) dispatchCancel(req *Request, ch *wireChannel) {
	rootMetrics.cancelIn.Add(1)
	id, _ := req.Kwargs["task_id"].(string)
	if id == "" && len(req.Args) > 0 {
		id, _ = req.Args[0].(string)
	}
	n.taskTable.cancel(id)
	ch.Send(newOKEnvelope(nil))
}

// dispatchOperation looks up req.Method in the Exposed Operation Table and
// runs its handler, unary or streaming.
func (n *PeerNode) dispatchOperation(req *Request, ch *wireChannel) {
	h, ok := n.handlerFor(req.Method)
	if !ok {
		ch.Send(newErrorEnvelope(fmt.Sprintf("method not found: %s", req.Method)))
		return
	}
	if h.unary != nil {
		n.dispatchUnary(h.unary, req, ch)
		return
	}
	n.dispatchStream(h.stream, req, ch)
}

func (n *PeerNode) dispatchUnary(fn UnaryFunc, req *Request, ch *wireChannel) {
	rootMetrics.callIn.Add(1)
	ctx := context.Background()
	result, err := runHandler(ctx, fn, req)
	if err != nil {
		rootMetrics.callInErr.Add(1)
		ch.Send(newErrorEnvelope(err.Error()))
		return
	}
	ch.Send(newOKEnvelope(result))
}

// runHandler invokes fn, converting a panic into an error response instead
// of letting it take down the accept-loop worker.
func runHandler(ctx context.Context, fn UnaryFunc, req *Request) (result any, err error) {
	defer func() {
		if x := recover(); x != nil && err == nil {
			err = fmt.Errorf("handler panicked (recovered): %v", x)
		}
	}()
	return fn(ctx, req)
}

func (n *PeerNode) dispatchStream(fn StreamFunc, req *Request, ch *wireChannel) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer, err := runStreamHandler(ctx, fn, req)
	if err != nil {
		ch.Send(newErrorEnvelope(err.Error()))
		return
	}

	id := n.taskTable.start(cancel)
	defer n.taskTable.remove(id)

	if err := ch.Send(newStreamStartEnvelope(id)); err != nil {
		return
	}
	rootMetrics.streamsStarted.Add(1)

	rootMetrics.streamsActive.Add(1)
	defer rootMetrics.streamsActive.Add(-1)

	for {
		value, ok, err := producer.Next(ctx)
		if err != nil {
			ch.Send(newErrorEnvelope(err.Error()))
			return
		}
		if !ok {
			ch.Send(newStreamEndEnvelope())
			return
		}
		if err := ch.Send(newProgressEnvelope(value)); err != nil {
			return
		}
	}
}

func runStreamHandler(ctx context.Context, fn StreamFunc, req *Request) (producer stream.Producer, err error) {
	defer func() {
		if x := recover(); x != nil && err == nil {
			err = fmt.Errorf("handler panicked (recovered): %v", x)
		}
	}()
	return fn(ctx, req)
}
