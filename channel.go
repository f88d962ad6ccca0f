package neverliie

import (
	"bufio"
	"io"
)

// wireChannel adapts a raw duplex byte stream (as produced by the transport
// package) into a sequence of envelopes, applying the codec's framing on
// both directions.
type wireChannel struct {
	r *bufio.Reader
	w *bufio.Writer
	c io.Closer
}

func newWireChannel(rwc io.ReadWriteCloser) *wireChannel {
	return &wireChannel{r: bufio.NewReader(rwc), w: bufio.NewWriter(rwc), c: rwc}
}

func (c *wireChannel) Send(e *Envelope) error {
	if err := WriteEnvelope(c.w, e); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	rootMetrics.envelopesSent.Add(1)
	return nil
}

func (c *wireChannel) Recv() (*Envelope, error) {
	return ReadEnvelope(c.r)
}

func (c *wireChannel) Close() error { return c.c.Close() }
