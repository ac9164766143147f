// Package web provides the HTTP control surface for the pet-feeder
// daemon: the control page, a JSON status endpoint, and the routes the
// original device exposed for its phone shortcuts (/feed, /set_timer,
// /get_timer, /set_pwm, /settings).
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/pet-feeder/internal/config"
	"github.com/sweeney/pet-feeder/internal/feeder"
	"github.com/sweeney/pet-feeder/internal/status"
)

// Server serves the control page and feeder API over HTTP.
type Server struct {
	httpServer *http.Server
	feeder     *feeder.Controller
	tracker    *status.Tracker
}

// New creates a Server that drives the given controller and reads
// daemon state from the given tracker.
func New(addr string, fc *feeder.Controller, tracker *status.Tracker) *Server {
	s := &Server{feeder: fc, tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/feed", s.handleFeed)
	mux.HandleFunc("/set_timer", s.handleSetTimer)
	mux.HandleFunc("/get_timer", s.handleGetTimer)
	mux.HandleFunc("/set_pwm", s.handleSetPWM)
	mux.HandleFunc("/settings", s.handleSettings)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.feeder.Status()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot(), snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot(), s.feeder.Status()))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if err := s.feeder.FeedNow(feeder.TriggerManual); err != nil {
		log.Printf("web: feed failed: %v", err)
		http.Error(w, "feed failed", http.StatusInternalServerError)
		return
	}
	cfg := s.feeder.Status().Config
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Feeding started, servo will reset in %d ms", cfg.ResetDelay.Milliseconds())
}

func (s *Server) handleSetTimer(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("minutes")
	if raw == "" {
		http.Error(w, "missing minutes parameter", http.StatusBadRequest)
		return
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid minutes parameter", http.StatusBadRequest)
		return
	}
	if err := s.feeder.SetSchedule(minutes); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if minutes > 0 {
		fmt.Fprintf(w, "Auto feeding timer set to %d minutes", minutes)
	} else {
		fmt.Fprint(w, "Auto feeding timer disabled")
	}
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	snap := s.feeder.Status()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%d", snap.Config.AutoFeedMinutes)
}

func (s *Server) handleSetPWM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setPWMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.PWM == nil && req.Delay == nil {
		http.Error(w, "missing pwm value", http.StatusBadRequest)
		return
	}

	var message string
	if req.PWM != nil {
		// No position means "current", matching the original device.
		name := req.Position
		if name == "" {
			name = "current"
		}
		role, err := feeder.ParseRole(name)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.feeder.SetPosition(role, *req.PWM); err != nil {
			writeError(w, err)
			return
		}
		switch role {
		case feeder.RoleRest:
			message = fmt.Sprintf("Rest position set to PWM: %d", *req.PWM)
		case feeder.RoleFeed:
			message = fmt.Sprintf("Feed position set to PWM: %d", *req.PWM)
		default:
			message = fmt.Sprintf("Current position set to PWM: %d", *req.PWM)
		}
	}

	if req.Delay != nil {
		d := time.Duration(*req.Delay) * time.Millisecond
		if err := s.feeder.SetResetDelay(d); err != nil {
			writeError(w, err)
			return
		}
		if message != "" {
			message += ", "
		}
		message += fmt.Sprintf("reset delay set to %d ms", *req.Delay)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(formatSettings(s.feeder.Status(), message))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatSettings(s.feeder.Status(), ""))
}

// writeError maps controller errors to HTTP responses. Validation
// failures carry the field and reason; anything else is a hardware or
// internal failure.
func writeError(w http.ResponseWriter, err error) {
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		http.Error(w, verr.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("web: request failed: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
