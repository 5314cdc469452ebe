// Package devserver is a local stand-in for the photo maker backend. It speaks the same
// login, logout and upload contract but performs no image processing: each uploaded image is
// validated, stored in memory under its output name and echoed back as a result.
package devserver

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"photomaker/internal/metrics"
	"photomaker/internal/store"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
)

const (
	SessionCookieName = "admin_session"
	defaultMaxUpload  = 64 << 20
)

type Config struct {
	Username string
	Password string
	Catalogs []string
	// SessionMaxAge expires idle sessions.
	SessionMaxAge time.Duration
	// MaxUploadBytes bounds one multipart request.
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
}

type Server struct {
	cfg    Config
	router *mux.Router

	mu       sync.Mutex
	sessions map[string]time.Time // token -> last seen
	files    map[string][]byte
}

func New(cfg Config) *Server {
	if cfg.Username == "" {
		cfg.Username = "admin"
	}
	if cfg.Password == "" {
		cfg.Password = "change-this"
	}
	if len(cfg.Catalogs) == 0 {
		cfg.Catalogs = store.DefaultCatalogs
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	s := &Server{
		cfg:      cfg,
		sessions: map[string]time.Time{},
		files:    map[string][]byte{},
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/logout", s.handleLogout).Methods("POST")
	r.HandleFunc("/upload", s.handleUpload).Methods("POST")
	r.HandleFunc("/catalogs", s.handleCatalogs).Methods("GET")
	r.HandleFunc("/files/{name}", s.handleFile).Methods("GET")
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics.Handler()).Methods("GET")
	}
	r.Use(s.logRequests)
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("Dev server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		took := time.Since(start)
		slog.Info("HTTP request", "method", r.Method, "route", route, "status", rec.status, "duration", took)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.ObserveHTTP(r.Method, route, rec.status, took)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "err", err)
	}
}

func newToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid form"})
		return
	}
	if r.PostFormValue("username") != s.cfg.Username || r.PostFormValue("password") != s.cfg.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "Invalid credentials"})
		return
	}
	tok := newToken()
	s.mu.Lock()
	s.sessions[tok] = time.Now()
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.SessionMaxAge.Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": tok})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok := requestToken(r); tok != "" {
		s.mu.Lock()
		delete(s.sessions, tok)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// authenticated checks and refreshes the caller's session.
func (s *Server) authenticated(r *http.Request) bool {
	tok := requestToken(r)
	if tok == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.sessions[tok]
	if !ok {
		return false
	}
	if time.Since(last) > s.cfg.SessionMaxAge {
		delete(s.sessions, tok)
		return false
	}
	s.sessions[tok] = time.Now()
	return true
}

// Expire drops every session, as if they all timed out.
func (s *Server) Expire() {
	s.mu.Lock()
	s.sessions = map[string]time.Time{}
	s.mu.Unlock()
}

type mappingEntry struct {
	Index        int    `json:"index"`
	DesignNumber string `json:"design_number"`
}

type itemResult struct {
	Filename     string  `json:"filename"`
	URL          *string `json:"url"`
	Status       string  `json:"status"`
	DesignNumber string  `json:"design_number,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Unauthorized"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("Invalid upload: %v", err)})
		return
	}
	catalog := strings.TrimSpace(r.FormValue("catalog"))
	if catalog == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "catalog is required"})
		return
	}

	var mapping []mappingEntry
	if err := json.Unmarshal([]byte(r.FormValue("mapping")), &mapping); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid mapping payload"})
		return
	}
	designs := make(map[int]string, len(mapping))
	for _, m := range mapping {
		designs[m.Index] = strings.TrimSpace(m.DesignNumber)
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "files are required"})
		return
	}

	results := make([]itemResult, 0, len(files))
	for idx, fh := range files {
		design := designs[idx]
		if design == "" {
			design = fmt.Sprintf("Design_%d", idx+1)
		}
		data, err := readPart(fh)
		if err == nil {
			_, err = imaging.Decode(bytes.NewReader(data))
		}
		if err != nil {
			results = append(results, itemResult{Filename: fh.Filename, Status: "error", Error: err.Error()})
			continue
		}
		name := fmt.Sprintf("%s - %s.jpg", catalog, design)
		s.mu.Lock()
		s.files[name] = data
		s.mu.Unlock()
		url := "/files/" + name
		results = append(results, itemResult{Filename: name, URL: &url, Status: "success", DesignNumber: design})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "catalog": catalog})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleCatalogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"catalogs": s.cfg.Catalogs})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Unauthorized"})
		return
	}
	name := mux.Vars(r)["name"]
	s.mu.Lock()
	data, ok := s.files[name]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
