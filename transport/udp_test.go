package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPair(t *testing.T) (*UDPListener, *UDPTransport) {
	t.Helper()

	l, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	c, err := DialUDP(l.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return l, c
}

func TestUDPRoundTrip(t *testing.T) {
	l, c := newPair(t)
	ctx := context.Background()

	require.NoError(t, c.Send([]byte(LoginTag)))

	data, addr, err := l.ReceiveFrom(ctx, time.Second, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte(LoginTag), data)

	require.NoError(t, l.SendTo([]byte("cookie"), addr))

	reply, err := c.Receive(ctx, time.Second, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("cookie"), reply)
	assert.Equal(t, l.LocalAddr().String(), c.RemoteAddr().String())
}

func TestUDPReceiveTimeout(t *testing.T) {
	_, c := newPair(t)

	const timeout = 150 * time.Millisecond
	start := time.Now()
	_, err := c.Receive(context.Background(), timeout, 1024)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
}

func TestUDPReceiveCancelled(t *testing.T) {
	_, c := newPair(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.Receive(ctx, 5*time.Second, 1024)

	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUDPDatagramTooLarge(t *testing.T) {
	l, c := newPair(t)
	ctx := context.Background()

	require.NoError(t, c.Send([]byte("hello")))
	_, addr, err := l.ReceiveFrom(ctx, time.Second, 1024)
	require.NoError(t, err)

	require.NoError(t, l.SendTo(bytes.Repeat([]byte("x"), 64), addr))
	_, err = c.Receive(ctx, time.Second, 32)
	assert.ErrorIs(t, err, ErrDatagramTooLarge)
}

func TestUDPIgnoresOtherSources(t *testing.T) {
	l, c := newPair(t)
	ctx := context.Background()

	stranger, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer stranger.Close()

	require.NoError(t, c.Send([]byte(LoginTag)))
	_, addr, err := l.ReceiveFrom(ctx, time.Second, 1024)
	require.NoError(t, err)

	local := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: c.LocalAddr().(*net.UDPAddr).Port}
	require.NoError(t, stranger.SendTo([]byte("spoofed"), local))
	require.NoError(t, stranger.SendTo(bytes.Repeat([]byte("x"), 64), local))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.SendTo([]byte("cookie"), addr))

	reply, err := c.Receive(ctx, time.Second, 32)
	require.NoError(t, err)
	assert.Equal(t, []byte("cookie"), reply)
}

func TestUDPClosedPortWaitsForTimeout(t *testing.T) {
	l, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	addr := l.LocalAddr().String()
	require.NoError(t, l.Close())

	c, err := DialUDP(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send([]byte(LoginTag)))

	const timeout = 200 * time.Millisecond
	start := time.Now()
	_, err = c.Receive(context.Background(), timeout, 1024)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, timeout)
}

func TestUDPClosed(t *testing.T) {
	_, c := newPair(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")

	assert.ErrorIs(t, c.Send([]byte("x")), ErrClosed)
	_, err := c.Receive(context.Background(), time.Second, 16)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpError(t *testing.T) {
	inner := errors.New("boom")
	err := newOpError("write", "127.0.0.1:9", inner)

	assert.Equal(t, "udp write 127.0.0.1:9: boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "udp listen: boom", newOpError("listen", "", inner).Error())
}
