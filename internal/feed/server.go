// Package feed serves a read-only live view of the command server: session
// snapshots over websocket plus JSON and HTML views of the journal.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmdbeacon/cmdbeacon/internal/journal"
	"github.com/cmdbeacon/cmdbeacon/internal/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type Server struct {
	store       *session.Store
	state       StateSource
	broadcaster *Broadcaster
	records     journal.Source
}

// NewServer wires the HTTP surface. records may be nil, in which case the
// journal endpoints report 503.
func NewServer(store *session.Store, state StateSource, broadcaster *Broadcaster, records journal.Source) *Server {
	return &Server{
		store:       store,
		state:       state,
		broadcaster: broadcaster,
		records:     records,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/journal", s.handleJournal).Methods(http.MethodGet)
	r.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	r.Use(securityHeaders)
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("WebSocket client connected: %s", r.RemoteAddr)
	c := s.broadcaster.AddClient(conn)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("feed: encode response: %v", err)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.GetAll())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, ok := s.store.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var snap session.Snapshot
	if s.state != nil {
		snap = s.state.Snapshot()
	}
	writeJSON(w, struct {
		session.Snapshot
		Active int `json:"active"`
	}{snap, s.store.ActiveCount()})
}

func (s *Server) loadRecords(w http.ResponseWriter, r *http.Request) ([]journal.Record, bool) {
	if s.records == nil {
		http.Error(w, "journal not available", http.StatusServiceUnavailable)
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	recs, err := s.records.Records(ctx)
	if err != nil {
		http.Error(w, fmt.Sprintf("reading journal: %v", err), http.StatusInternalServerError)
		return nil, false
	}
	return recs, true
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	if sender := r.URL.Query().Get("sender"); sender != "" {
		want, err := journal.ParseSender(strings.ToUpper(sender))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filtered := recs[:0]
		for _, rec := range recs {
			if rec.Sender == want {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	if recs == nil {
		recs = []journal.Record{}
	}
	writeJSON(w, recs)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	// The report carries its own stylesheet and filter script.
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'; script-src 'unsafe-inline'")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := journal.RenderHTML(w, recs); err != nil {
		log.Printf("feed: render report: %v", err)
	}
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	hostname := parsed.Hostname()
	return hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
}

// ListenAndServe serves handler until ctx is done, then shuts down with a
// short grace period.
func ListenAndServe(ctx context.Context, host string, port int, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Printf("Feed listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
