package transport

import "net"

// Direct returns a connected in-memory pair of byte streams, suitable for
// tests that don't want to bind a real socket. It mirrors the OS-level
// guarantees Dial/Listen provide: bytes written to A arrive on B and vice
// versa, with no framing of their own.
func Direct() (a, b net.Conn) {
	return net.Pipe()
}
