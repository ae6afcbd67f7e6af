package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	maxLineSize  = 4096
	inboundBuf   = 256
	maxNameLen   = 32
	wsReadLimit  = maxLineSize
	closeMessage = "server closing"
)

// LineConn carries the newline-delimited protocol over some transport
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	SetReadDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
}

// tcpConn is a LineConn over a raw TCP stream
type tcpConn struct {
	conn         net.Conn
	r            *bufio.Reader
	writeTimeout time.Duration
}

func newTCPConn(conn net.Conn, writeTimeout time.Duration) *tcpConn {
	return &tcpConn{conn: conn, r: bufio.NewReaderSize(conn, maxLineSize), writeTimeout: writeTimeout}
}

// ReadLine returns the next line. A line that does not fit in maxLineSize bytes
// is discarded up to its newline and reported as a protocol error.
func (c *tcpConn) ReadLine() (string, error) {
	line, err := c.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = c.r.ReadSlice('\n')
		}
		if err == nil {
			return "", protocolErr("line longer than %d bytes", maxLineSize)
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return "", ErrConnectionClosed
		}
		return "", fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (c *tcpConn) WriteLine(line string) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

func (c *tcpConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }
func (c *tcpConn) Close() error                       { return c.conn.Close() }
func (c *tcpConn) RemoteAddr() string                 { return c.conn.RemoteAddr().String() }

// wsConn is a LineConn over a WebSocket, one line per text frame
type wsConn struct {
	conn         *websocket.Conn
	remoteAddr   string
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, remoteAddr string, writeTimeout time.Duration) *wsConn {
	conn.SetReadLimit(wsReadLimit)
	return &wsConn{conn: conn, remoteAddr: remoteAddr, writeTimeout: writeTimeout}
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("ws read error", "addr", c.remoteAddr, "err", err)
			}
			return "", fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(msg), "\r\n"), nil
	}
}

func (c *wsConn) WriteLine(line string) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }
func (c *wsConn) RemoteAddr() string                 { return c.remoteAddr }

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, closeMessage),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// ReadPump parses client lines into commands until the connection fails.
// It closes in on exit, which tells the engine the player has left.
func ReadPump(conn LineConn, name string, in chan<- Command, limiter *rate.Limiter, m *Metrics) {
	defer close(in)
	for {
		line, err := conn.ReadLine()
		if errors.Is(err, ErrProtocol) {
			m.ProtocolErrors.Add(1)
			Log.Warnw("bad client line", "name", name, "err", err)
			continue
		}
		if err != nil {
			Log.Debugw("reader stopped", "name", name, "err", err)
			return
		}
		if limiter != nil && !limiter.Allow() {
			m.RateLimited.Add(1)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := ParseCommand(line)
		if err != nil {
			m.ProtocolErrors.Add(1)
			Log.Warnw("bad client line", "name", name, "err", err)
			continue
		}
		select {
		case in <- cmd:
		default:
			m.InboundDropped.Add(1)
		}
	}
}

// WritePump drains out onto the connection. It closes the connection once out is
// closed or a write fails.
func WritePump(conn LineConn, name string, out <-chan string) {
	defer conn.Close()
	for line := range out {
		if err := conn.WriteLine(line); err != nil {
			Log.Debugw("writer stopped", "name", name, "err", err)
			return
		}
	}
}

// Send queues a line without blocking. Slow clients lose lines.
func Send(out chan<- string, line string, m *Metrics) {
	select {
	case out <- line:
	default:
		m.OutboundDropped.Add(1)
	}
}
