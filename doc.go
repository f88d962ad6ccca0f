// Package neverliie implements the NeverLiie peer IPC runtime.
//
// NeverLiie lets a small, fixed set of cooperating local processes discover
// each other, invoke each other's operations by name, and stream partial
// results with cancellation. Each process runs one [PeerNode]: simultaneously
// a server exposing named operations and a client calling operations on
// other peers.
//
// # Booting a node
//
// To create and start a node:
//
//	n, err := neverliie.Boot(ctx, "launcher")
//	if err != nil {
//	    if errors.Is(err, neverliie.ErrAlreadyRunning) {
//	        os.Exit(0) // a duplicate peer is a clean exit, not an error
//	    }
//	    log.Fatal(err)
//	}
//	defer n.Stop()
//
// # Exposing operations
//
// Use [PeerNode.Expose] to register a handler under a name. A handler is
// either a [UnaryFunc], returning a single value, or a [StreamFunc],
// returning a [stream.Producer] that yields a lazy finite sequence:
//
//	n.Expose("add", neverliie.UnaryFunc(func(ctx context.Context, req *neverliie.Request) (any, error) {
//	    return req.Args[0].(float64) + req.Args[1].(float64), nil
//	}))
//
// # Calling other peers
//
// Use [PeerNode.GetPeer] to obtain a [Proxy], then call operations on it.
// The explicit lifecycle contract requires the caller to [PeerNode.Ping] and,
// if offline, [PeerNode.Wake] before calling — [Proxy.CallOrWake] composes
// the three for callers that want the convenience:
//
//	other := n.GetPeer("terminal")
//	rsp, err := other.Call(ctx, "add", []any{2, 3}, nil)
//
// Streaming calls return a [Stream]:
//
//	st, err := other.Stream(ctx, "count", []any{3}, nil)
//	for v, err := range st.All(ctx) {
//	    ...
//	}
//	st.Cancel(ctx) // idempotent
package neverliie
