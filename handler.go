package neverliie

import (
	"context"
	"strings"

	"github.com/Liiesl/NeverLiie/stream"
)

// Request is passed to a handler invoked by a remote peer. Kwargs has already had client-side-only keys (those beginning
// with "_") stripped.
type Request struct {
	Method string
	Args   []any
	Kwargs map[string]any
}

// UnaryFunc is a handler that produces a single scalar result.
type UnaryFunc func(ctx context.Context, req *Request) (any, error)

// StreamFunc is a handler that produces a lazy finite sequence of results.
// An error returned instead of a Producer aborts the call before
// STREAM_START is ever sent, and is reported the same way a UnaryFunc error
// would be.
type StreamFunc func(ctx context.Context, req *Request) (stream.Producer, error)

// boundHandler is the internal, uniform shape the dispatch loop drives; it
// is produced by normalizing whichever of UnaryFunc/StreamFunc was passed to
// Expose.
type boundHandler struct {
	unary  UnaryFunc
	stream StreamFunc
}

// stripMagicKwargs removes client-side-only keys (those beginning with "_",
// e.g. _timeout, _stream) from kwargs before a handler sees them, without
// mutating the caller's map in place.
func stripMagicKwargs(kwargs map[string]any) map[string]any {
	if kwargs == nil {
		return nil
	}
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}
