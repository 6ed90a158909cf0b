// Package api serves the monitor views as JSON over HTTP and pushes live
// updates to websocket clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/stellarlinkco/clawdash/internal/activity"
	"github.com/stellarlinkco/clawdash/internal/bus"
	"github.com/stellarlinkco/clawdash/internal/channel"
	"github.com/stellarlinkco/clawdash/internal/config"
	"github.com/stellarlinkco/clawdash/internal/logger"
	"github.com/stellarlinkco/clawdash/internal/monitor"
)

const (
	writeTimeout = 5 * time.Second
	clientBuffer = 16
)

type errorBody struct {
	Error string `json:"error"`
}

// badRequest marks errors caused by the caller's query parameters.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

type Server struct {
	svc     *monitor.Service
	cfg     *config.Config
	hub     *bus.Hub
	server  *http.Server
	addr    string
	clients sync.Map
	nextID  atomic.Int64
	log     zerolog.Logger
}

func NewServer(svc *monitor.Service, cfg *config.Config, hub *bus.Hub) *Server {
	return &Server{
		svc: svc,
		cfg: cfg,
		hub: hub,
		log: logger.WithComponent("api"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.get(func(r *http.Request) (any, error) { return s.svc.Status(r.Context()) }))
	mux.HandleFunc("/api/health", s.get(func(r *http.Request) (any, error) { return s.svc.Health(r.Context()) }))
	mux.HandleFunc("/api/channels", s.get(func(r *http.Request) (any, error) { return s.svc.Channels(r.Context()) }))
	mux.HandleFunc("/api/activity", s.get(s.activity))
	mux.HandleFunc("/api/cron", s.get(func(r *http.Request) (any, error) { return s.svc.Cron(r.Context()) }))
	mux.HandleFunc("/api/config", s.get(func(r *http.Request) (any, error) { return s.svc.Config(r.Context()) }))
	mux.HandleFunc("/api/agents", s.get(func(r *http.Request) (any, error) { return s.svc.Agents(r.Context()) }))
	mux.HandleFunc("/api/memory", s.get(func(r *http.Request) (any, error) { return s.svc.Memory(r.Context()) }))
	mux.HandleFunc("/api/branding", s.get(func(*http.Request) (any, error) { return s.svc.Branding(), nil }))
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start binds the configured address and serves in the background until
// Stop is called. Bind errors are returned.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr(), err)
	}
	s.addr = ln.Addr().String()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("server error")
		}
	}()
	return nil
}

// Addr is the bound address once Start has returned.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).Msg("shutdown error")
		}
	}
	s.clients.Range(func(_, value any) bool {
		value.(*websocket.Conn).CloseNow()
		return true
	})
	s.log.Info().Msg("stopped")
	return nil
}

func (s *Server) get(fn func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
			return
		}
		v, err := fn(r)
		if err != nil {
			var bad badRequest
			switch {
			case errors.As(err, &bad):
				writeJSON(w, http.StatusBadRequest, errorBody{Error: bad.msg})
			case errors.Is(err, monitor.ErrNoData):
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
			default:
				s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			}
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) activity(r *http.Request) (any, error) {
	f, err := ParseFilter(r)
	if err != nil {
		return nil, err
	}
	return s.svc.Activity(r.Context(), f)
}

// ParseFilter reads type, channel, search, page and pageSize from the
// query string. Unknown types or channels and non-numeric or negative
// paging values are rejected.
func ParseFilter(r *http.Request) (activity.Filter, error) {
	q := r.URL.Query()
	var f activity.Filter

	if v := strings.TrimSpace(q.Get("type")); v != "" && v != "all" {
		t, ok := activity.ParseType(v)
		if !ok {
			return f, badRequest{fmt.Sprintf("unknown activity type %q", v)}
		}
		f.Type = t
	}
	if v := strings.ToLower(strings.TrimSpace(q.Get("channel"))); v != "" && v != "all" {
		if !channel.Known(v) {
			return f, badRequest{fmt.Sprintf("unknown channel %q", v)}
		}
		f.Channel = channel.Name(v)
	}
	f.Search = q.Get("search")

	var err error
	if f.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = intParam(q.Get("pageSize"), "pageSize"); err != nil {
		return f, err
	}
	return f, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest{fmt.Sprintf("%s must be a non-negative integer", name)}
	}
	return n, nil
}

// handleWS streams hub events to one client until either side closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept error")
		return
	}

	id := fmt.Sprintf("ws-%d", s.nextID.Add(1))
	s.clients.Store(id, conn)
	events, cancel := s.hub.Subscribe(clientBuffer)
	s.log.Debug().Str("client", id).Msg("client connected")

	defer func() {
		cancel()
		s.clients.Delete(id)
		conn.CloseNow()
		s.log.Debug().Str("client", id).Msg("client disconnected")
	}()

	// Clients only listen; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	if v, err := s.svc.Status(ctx); err == nil {
		if err := s.write(ctx, conn, bus.Event{Type: bus.EventStatus, Timestamp: v.GeneratedAt, Data: v}); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.write(ctx, conn, e); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, e bus.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
