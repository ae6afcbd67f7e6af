package main

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Join is a handshaken connection waiting for the engine to admit it
type Join struct {
	Name string
	Conn LineConn
	In   <-chan Command
}

// Hub accepts connections, runs the handshake and hands players to the engine
type Hub struct {
	cfg     ServerConfig
	joins   chan<- Join
	metrics *Metrics

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a Hub that delivers joins on the given channel
func NewHub(cfg ServerConfig, joins chan<- Join, m *Metrics) *Hub {
	return &Hub{
		cfg:     cfg,
		joins:   joins,
		metrics: m,
		ipConns: make(map[string]int),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.cfg.MaxConns > 0 && h.totalConns >= h.cfg.MaxConns {
		return false
	}
	if h.cfg.MaxConnsPerIP > 0 && h.ipConns[ip] >= h.cfg.MaxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}

// Listen binds the TCP game port
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Join(ErrBind, err)
	}
	return ln, nil
}

// Serve accepts TCP connections until ctx is cancelled
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	Log.Infow("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			Log.Warnw("accept failed", "err", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		go h.Handle(ctx, newTCPConn(conn, h.cfg.WriteTimeout))
	}
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Handle runs the handshake on a fresh connection and passes it to the engine.
// It returns once the join has been delivered or the connection dropped.
func (h *Hub) Handle(ctx context.Context, conn LineConn) {
	ip := hostOf(conn.RemoteAddr())
	if !h.CanAccept(ip) {
		h.metrics.ConnsRejected.Add(1)
		Log.Infow("connection limit reached", "ip", ip)
		conn.Close()
		return
	}
	h.TrackConnect(ip)
	h.metrics.ConnsAccepted.Add(1)

	if h.cfg.HandshakeTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	}
	line, err := conn.ReadLine()
	if err == nil {
		var name string
		name, err = ParseHandshake(line)
		if err == nil && !ValidName(name) {
			err = protocolErr("name %q not allowed", name)
		}
		if err == nil {
			_ = conn.SetReadDeadline(time.Time{})
			h.start(ctx, conn, ip, name)
			return
		}
	}
	h.metrics.HandshakeFailures.Add(1)
	Log.Infow("handshake failed", "addr", conn.RemoteAddr(), "err", err)
	conn.Close()
	h.TrackDisconnect(ip)
}

func (h *Hub) start(ctx context.Context, conn LineConn, ip, name string) {
	in := make(chan Command, inboundBuf)
	var limiter *rate.Limiter
	if h.cfg.LinesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.LinesPerSecond), max(h.cfg.LineBurst, 1))
	}
	go func() {
		defer h.TrackDisconnect(ip)
		ReadPump(conn, name, in, limiter, h.metrics)
	}()

	select {
	case h.joins <- Join{Name: name, Conn: conn, In: in}:
		Log.Debugw("handshake complete", "name", name, "addr", conn.RemoteAddr())
	case <-ctx.Done():
		Log.Infow("engine gone, dropping connection", "name", name, "err", ErrChannelClosed)
		conn.Close()
	}
}
