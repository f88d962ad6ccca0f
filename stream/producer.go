// Package stream provides the lazy-sequence capability used by streaming
// operation handlers, and adapters from common Go shapes (slices, channels,
// pull-style functions) to that capability.
package stream

import "context"

// A Producer yields a lazy finite sequence of values. Next blocks until the
// next value is ready, the sequence ends, or ctx is done, whichever comes
// first. It returns ok == false exactly once, when the sequence is
// exhausted; after that, further calls to Next are not made by the server
// engine.
//
// A Producer that never returns ok == false and never observes ctx.Done
// cannot be cancelled mid-stream. This is an accepted limitation: such a
// producer would behave as a single scalar result if it only ever yielded
// once, so the cost of this limitation is confined to producers that loop
// without checking their context.
type Producer interface {
	Next(ctx context.Context) (value any, ok bool, err error)
}

// FromSlice returns a Producer that yields the elements of vals in order and
// then ends, checking ctx between elements.
func FromSlice(vals []any) Producer {
	return &sliceProducer{vals: vals}
}

type sliceProducer struct {
	vals []any
	pos  int
}

func (p *sliceProducer) Next(ctx context.Context) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if p.pos >= len(p.vals) {
		return nil, false, nil
	}
	v := p.vals[p.pos]
	p.pos++
	return v, true, nil
}

// FromChannel returns a Producer that yields values received from ch until
// ch is closed or ctx ends. errc, if non-nil, is consulted (non-blocking)
// after ch closes to recover a terminal error.
func FromChannel(ch <-chan any, errc <-chan error) Producer {
	return &chanProducer{ch: ch, errc: errc}
}

type chanProducer struct {
	ch   <-chan any
	errc <-chan error
	done bool
}

func (p *chanProducer) Next(ctx context.Context) (any, bool, error) {
	if p.done {
		return nil, false, nil
	}
	select {
	case v, ok := <-p.ch:
		if !ok {
			p.done = true
			if p.errc != nil {
				select {
				case err := <-p.errc:
					return nil, false, err
				default:
				}
			}
			return nil, false, nil
		}
		return v, true, nil
	case <-ctx.Done():
		p.done = true
		return nil, false, ctx.Err()
	}
}

// YieldFunc is called repeatedly by a FromFunc producer; it returns the next
// value and true, or ok == false when the sequence ends.
type YieldFunc func(ctx context.Context) (value any, ok bool, err error)

// FromFunc adapts an arbitrary YieldFunc to a Producer. It exists so
// handlers that already have a pull-style generator (rather than a slice or
// channel) don't need to wrap it in a goroutine first.
func FromFunc(f YieldFunc) Producer {
	return funcProducer(f)
}

type funcProducer YieldFunc

func (f funcProducer) Next(ctx context.Context) (any, bool, error) {
	return f(ctx)
}
