package transport

import (
	"context"
	"net"
	"time"
)

// Transport is a datagram channel to a single peer.
type Transport interface {
	// Send writes one datagram to the peer.
	Send(data []byte) error

	// Receive waits at most timeout for the next datagram of at most maxSize bytes.
	// It returns ErrTimeout when nothing arrives and ErrDatagramTooLarge when the
	// datagram does not fit.
	Receive(ctx context.Context, timeout time.Duration, maxSize int) ([]byte, error)

	// LocalAddr returns the local address of the socket.
	LocalAddr() net.Addr

	// RemoteAddr returns the peer address.
	RemoteAddr() net.Addr

	// Close shuts down the transport.
	Close() error
}
