package main

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// fakeConn is an in-memory LineConn. Tests push inbound lines with feed and
// end the stream with hangup.
type fakeConn struct {
	mu      sync.Mutex
	lines   chan string
	done    chan struct{}
	once    sync.Once
	written []string
	closed  bool
	addr    string
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{lines: make(chan string, 64), done: make(chan struct{}), addr: addr}
}

func (f *fakeConn) feed(lines ...string) {
	for _, l := range lines {
		f.lines <- l
	}
}

func (f *fakeConn) hangup() {
	f.once.Do(func() { close(f.done) })
}

func (f *fakeConn) ReadLine() (string, error) {
	select {
	case l := <-f.lines:
		return l, nil
	case <-f.done:
		return "", ErrConnectionClosed
	}
}

func (f *fakeConn) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnectionClosed
	}
	f.written = append(f.written, line)
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) RemoteAddr() string              { return f.addr }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.hangup()
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func TestReadPumpParsesAndClosesOnHangup(t *testing.T) {
	conn := newFakeConn("10.0.0.1:5000")
	in := make(chan Command, 16)
	m := &Metrics{}

	conn.feed("sail 0.5 -0.25", "bogus", "anchor", "", "action 1")
	done := make(chan struct{})
	go func() {
		ReadPump(conn, "Nelson", in, nil, m)
		close(done)
	}()

	var got []Command
	for i := 0; i < 3; i++ {
		select {
		case c := <-in:
			got = append(got, c)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for commands")
		}
	}
	conn.hangup()
	<-done

	assert.Equal(t, []Command{
		{Kind: CmdSail, Power: 0.5, Helm: -0.25},
		{Kind: CmdAnchor},
		{Kind: CmdAction, Index: 1},
	}, got)
	assert.Equal(t, int64(1), m.ProtocolErrors.Load())

	_, ok := <-in
	assert.False(t, ok, "inbound channel should be closed after hangup")
}

func TestReadPumpRateLimitDropsLines(t *testing.T) {
	conn := newFakeConn("10.0.0.1:5000")
	in := make(chan Command, 64)
	m := &Metrics{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 2)

	for i := 0; i < 10; i++ {
		conn.feed("smoke")
	}
	conn.feed("anchor")
	done := make(chan struct{})
	go func() {
		ReadPump(conn, "Nelson", in, limiter, m)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.RateLimited.Load() == 9 }, 2*time.Second, 5*time.Millisecond)
	conn.hangup()
	<-done

	n := 0
	for range in {
		n++
	}
	assert.Equal(t, 2, n)
	assert.False(t, conn.isClosed(), "rate limiting must not disconnect")
}

func TestWritePumpDrainsThenCloses(t *testing.T) {
	conn := newFakeConn("10.0.0.1:5000")
	out := make(chan string, 4)
	out <- "radius 5000"
	out <- "sunk Drake"
	close(out)

	WritePump(conn, "Nelson", out)

	assert.Equal(t, []string{"radius 5000", "sunk Drake"}, conn.sent())
	assert.True(t, conn.isClosed())
}

func TestSendDropsWhenFull(t *testing.T) {
	out := make(chan string, 1)
	m := &Metrics{}
	Send(out, "a", m)
	Send(out, "b", m)
	assert.Equal(t, "a", <-out)
	assert.Equal(t, int64(1), m.OutboundDropped.Load())
}

func TestTCPConnDiscardsOverlongLine(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	conn := newTCPConn(server, 0)

	go func() {
		io.WriteString(client, "sail 1 0\n")
		io.WriteString(client, strings.Repeat("x", 8<<20)+"\n")
		io.WriteString(client, "anchor\r\n")
		client.Close()
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "sail 1 0", line)

	_, err = conn.ReadLine()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol), "over-long line should be a protocol error, got %v", err)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "anchor", line, "the stream resyncs on the next newline")

	_, err = conn.ReadLine()
	assert.True(t, errors.Is(err, ErrConnectionClosed))
}

func TestReadPumpSkipsOverlongLine(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	in := make(chan Command, 16)
	m := &Metrics{}

	go func() {
		io.WriteString(client, strings.Repeat("y", 2*maxLineSize)+"\n")
		io.WriteString(client, "smoke\n")
		client.Close()
	}()
	ReadPump(newTCPConn(server, 0), "Mallory", in, nil, m)

	var got []Command
	for c := range in {
		got = append(got, c)
	}
	assert.Equal(t, []Command{{Kind: CmdSmoke}}, got)
	assert.Equal(t, int64(1), m.ProtocolErrors.Load())
}
