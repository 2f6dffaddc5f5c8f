package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	cfg     *Config
	hub     *Hub
	log     *zap.Logger
	srv     *http.Server
	auth    *Auth
	limiter *IPLimiter
}

func NewServer(cfg *Config, hub *Hub, log *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		hub:     hub,
		log:     log,
		auth:    NewAuth(cfg.SharedToken),
		limiter: NewIPLimiter(cfg.RateLimitPerIP),
	}

	r := chi.NewRouter()
	r.Use(s.corsMiddleware)
	r.Get("/", s.handleIndex)
	r.Get("/api/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/api/videos", s.handleVideos)
	})
	r.Get("/media/*", s.handleMedia)
	r.Get("/ws", s.handleWS)

	s.srv = &http.Server{
		Addr:        cfg.Addr,
		Handler:     r,
		ReadTimeout: 120 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) ListenAndServe() error {
	if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		s.log.Info("tls enabled", zap.String("cert", s.cfg.TLSCert))
		return s.srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	s.log.Info("tls disabled (no cert/key configured)")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.limiter.Stop()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("shutdown error", zap.Error(err))
	}
}

// corsMiddleware mirrors the configured origin and exposes the headers a
// browser media element needs for range requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin == s.cfg.Origin {
			w.Header().Set("Access-Control-Allow-Origin", s.cfg.Origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Range, Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Accept-Ranges, Content-Length, Content-Range")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":        true,
		"timestamp": time.Now().UnixMilli(),
	})
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := ScanMediaDir(s.cfg.MediaDir)
	if err != nil {
		s.log.Error("media scan failed", zap.Error(err))
		http.Error(w, `{"error":"failed to scan media directory"}`, http.StatusNotFound)
		return
	}
	if videos == nil {
		videos = []VideoInfo{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(videos)
}

// handleWS upgrades a sync connection. Room capacity checks happen before
// the upgrade (plain HTTP errors); missing identifiers or a bad token are
// reported after the upgrade with close code 1008 so the client can tell
// an auth failure from a transport failure.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.limiter.Allow(ip) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	q := r.URL.Query()
	roomID := q.Get("roomId")
	clientID := q.Get("clientId")
	token := q.Get("token")

	if roomID != "" {
		if count := s.hub.SessionCount(roomID); count > 0 {
			if count >= s.cfg.MaxClientsPerRoom {
				http.Error(w, "room full", http.StatusServiceUnavailable)
				return
			}
		} else if s.hub.RoomCount() >= s.cfg.MaxRooms {
			http.Error(w, "max rooms reached", http.StatusServiceUnavailable)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.String("ip", ip), zap.Error(err))
		return
	}

	if roomID == "" || clientID == "" {
		closePolicyViolation(conn, "Missing roomId or clientId")
		return
	}
	if !s.auth.CheckToken(token) {
		s.log.Warn("ws auth rejected", zap.String("room", roomID), zap.String("ip", ip))
		closePolicyViolation(conn, "Invalid token")
		return
	}

	s.hub.Register(NewSession(s.hub, conn, roomID, clientID, ip))
}

func closePolicyViolation(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
