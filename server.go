package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSize           = 256
	journalLimit     = 50
	journalMaxLimit  = 500
	snapshotMimeType = "application/msgpack"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Routes bundles what the HTTP handlers may read
type Routes struct {
	Hub        *Hub
	Metrics    *Metrics
	Snapshots  *SnapshotStore
	Journal    *Analytics
	PublicAddr string
}

// SetupRoutes configures the websocket gateway and status endpoints
func SetupRoutes(ctx context.Context, rt Routes) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := hostOf(r.RemoteAddr)
		if !rt.Hub.CanAccept(ip) {
			rt.Metrics.ConnsRejected.Add(1)
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Debugw("upgrade error", "ip", ip, "err", err)
			return
		}
		rt.Hub.Handle(ctx, newWSConn(conn, r.RemoteAddr, rt.Hub.cfg.WriteTimeout))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, rt.Metrics.Snapshot())
	})

	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		b := rt.Snapshots.Encoded()
		if b == nil {
			http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", snapshotMimeType)
		_, _ = w.Write(b)
	})

	mux.HandleFunc("/join.png", func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(rt.PublicAddr, qrcode.Medium, qrSize)
		if err != nil {
			Log.Warnw("qr encode failed", "addr", rt.PublicAddr, "err", err)
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})

	mux.HandleFunc("/journal", func(w http.ResponseWriter, r *http.Request) {
		db := rt.Journal.DB()
		if db == nil {
			http.Error(w, "journal disabled", http.StatusNotFound)
			return
		}
		limit := journalLimit
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = min(v, journalMaxLimit)
		}
		recent, err := db.RecentEvents(limit)
		if err != nil {
			Log.Warnw("journal query failed", "err", err)
			http.Error(w, "journal query failed", http.StatusInternalServerError)
			return
		}
		counts, err := db.EventCounts()
		if err != nil {
			Log.Warnw("journal query failed", "err", err)
			http.Error(w, "journal query failed", http.StatusInternalServerError)
			return
		}
		top, err := db.SinkingsBy(10)
		if err != nil {
			Log.Warnw("journal query failed", "err", err)
			http.Error(w, "journal query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"recent": recent, "counts": counts, "top_sinkers": top})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Log.Debugw("json encode failed", "err", err)
	}
}
