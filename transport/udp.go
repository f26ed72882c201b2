package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// UDPTransport implements Transport over an unconnected UDP socket. Datagrams
// are addressed to a single peer and replies from any other source are
// dropped. An unconnected socket never reports ICMP port-unreachable, so a
// missing server is only ever detected by the receive timeout.
type UDPTransport struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	mu     sync.Mutex
	closed bool
}

// DialUDP opens a UDP socket that sends to addr.
func DialUDP(addr string) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, newOpError("resolve", addr, err)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, newOpError("listen", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "DialUDP",
		"local":    conn.LocalAddr().String(),
		"remote":   raddr.String(),
	}).Debug("UDP transport ready")

	return &UDPTransport{conn: conn, remote: raddr}, nil
}

// Send writes one datagram to the peer.
func (t *UDPTransport) Send(data []byte) error {
	if t.isClosed() {
		return ErrClosed
	}

	if _, err := t.conn.WriteTo(data, t.remote); err != nil {
		return newOpError("write", t.remote.String(), err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "UDPTransport.Send",
		"remote":   t.remote.String(),
		"size":     len(data),
	}).Debug("Datagram sent")

	return nil
}

// Receive waits for the next datagram from the peer. Datagrams from other
// sources do not extend the deadline.
func (t *UDPTransport) Receive(ctx context.Context, timeout time.Duration, maxSize int) ([]byte, error) {
	if t.isClosed() {
		return nil, ErrClosed
	}

	deadline := time.Now().Add(timeout)
	for {
		data, addr, err := readDatagram(ctx, t.conn, deadline, maxSize)
		if addr != nil && !t.fromPeer(addr) {
			logrus.WithFields(logrus.Fields{
				"function": "UDPTransport.Receive",
				"source":   addr.String(),
			}).Debug("Dropped datagram from unexpected source")
			continue
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) || errors.Is(err, ErrDatagramTooLarge) || ctx.Err() != nil {
				return nil, err
			}
			return nil, newOpError("read", t.remote.String(), err)
		}

		logrus.WithFields(logrus.Fields{
			"function": "UDPTransport.Receive",
			"remote":   t.remote.String(),
			"size":     len(data),
		}).Debug("Datagram received")

		return data, nil
	}
}

func (t *UDPTransport) fromPeer(addr net.Addr) bool {
	udp, ok := addr.(*net.UDPAddr)
	return ok && udp.Port == t.remote.Port && udp.IP.Equal(t.remote.IP)
}

// LocalAddr returns the local address of the socket.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// RemoteAddr returns the peer address.
func (t *UDPTransport) RemoteAddr() net.Addr {
	return t.remote
}

// Close shuts down the transport.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

func (t *UDPTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// UDPListener receives datagrams from any address. It is the server side of
// the protocol.
type UDPListener struct {
	conn net.PacketConn
}

// ListenUDP binds a UDP socket on addr.
func ListenUDP(addr string) (*UDPListener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, newOpError("listen", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "ListenUDP",
		"local":    conn.LocalAddr().String(),
	}).Debug("UDP listener ready")

	return &UDPListener{conn: conn}, nil
}

// ReceiveFrom waits at most timeout for a datagram of at most maxSize bytes.
func (l *UDPListener) ReceiveFrom(ctx context.Context, timeout time.Duration, maxSize int) ([]byte, net.Addr, error) {
	return readDatagram(ctx, l.conn, time.Now().Add(timeout), maxSize)
}

// SendTo writes one datagram to addr.
func (l *UDPListener) SendTo(data []byte, addr net.Addr) error {
	if _, err := l.conn.WriteTo(data, addr); err != nil {
		return newOpError("write", addr.String(), err)
	}
	return nil
}

// LocalAddr returns the address the listener is bound to.
func (l *UDPListener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Close shuts down the listener.
func (l *UDPListener) Close() error {
	return l.conn.Close()
}

// readDatagram reads one datagram before deadline, cut short by ctx. A buffer
// one byte larger than maxSize detects oversized datagrams.
func readDatagram(ctx context.Context, conn net.PacketConn, deadline time.Time, maxSize int) ([]byte, net.Addr, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, nil, err
	}
	defer conn.SetReadDeadline(time.Time{})

	// Unblock the read as soon as ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	buffer := make([]byte, maxSize+1)
	n, addr, err := conn.ReadFrom(buffer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil, ErrTimeout
		}
		return nil, nil, err
	}

	if n > maxSize {
		return nil, addr, ErrDatagramTooLarge
	}

	return buffer[:n], addr, nil
}
