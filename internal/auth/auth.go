// Package auth provides the HTTP transport used to talk to the backend: either a cookie
// session established through /login, or a bearer token. Credentials persist in the local
// preference store so the CLI and the TUI share one session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"photomaker/internal/store"
)

type Mode string

const (
	ModeCookie Mode = "cookie"
	ModeBearer Mode = "bearer"
)

func ParseMode(v string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case "", ModeCookie:
		return ModeCookie, nil
	case ModeBearer:
		return ModeBearer, nil
	}
	return "", fmt.Errorf("invalid auth mode %q (expected cookie|bearer)", v)
}

// Prefs is the subset of store.Store a session persists into.
type Prefs interface {
	GetPref(ctx context.Context, key string) (string, bool, error)
	SetPref(ctx context.Context, key, value string) error
	DeletePref(ctx context.Context, key string) error
}

// LoginError is a rejected login.
type LoginError struct {
	StatusCode int
	Message    string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("login failed (HTTP %d)", e.StatusCode)
	}
	return e.Message
}

// Session is the authenticated transport for one backend.
type Session struct {
	BaseURL string
	Mode    Mode

	prefs  Prefs
	base   *url.URL
	jar    *resettableJar
	client *http.Client

	mu    sync.Mutex
	token string
}

// Open builds a session and restores any persisted credentials. A non-empty token always wins
// in bearer mode.
func Open(ctx context.Context, baseURL string, mode Mode, prefs Prefs, token string) (*Session, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	jar, err := newResettableJar()
	if err != nil {
		return nil, err
	}
	s := &Session{
		BaseURL: u.String(),
		Mode:    mode,
		prefs:   prefs,
		base:    u,
		jar:     jar,
		token:   strings.TrimSpace(token),
	}
	if err := s.restore(ctx); err != nil {
		slog.Warn("Could not restore session", "err", err)
	}

	var rt http.RoundTripper = http.DefaultTransport
	if mode == ModeBearer {
		rt = &bearerTransport{session: s, next: rt}
	}
	s.client = &http.Client{
		Timeout:   5 * time.Minute,
		Transport: rt,
		Jar:       jar,
		// /login answers browsers with a 303; the JSON body is what we want.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	return s, nil
}

// Client is the HTTP client carrying the session credentials.
func (s *Session) Client() *http.Client { return s.client }

// LoggedIn reports whether credentials are present. The backend may still reject them.
func (s *Session) LoggedIn() bool {
	if s.Mode == ModeBearer {
		return s.bearer() != ""
	}
	return len(s.jar.Cookies(s.base)) > 0
}

type loginReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Token string `json:"token"`
}

// Login posts the credentials to /login and persists what the server hands back.
func (s *Session) Login(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var lr loginReply
	_ = json.Unmarshal(body, &lr)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !lr.OK {
		msg := strings.TrimSpace(lr.Error)
		if msg == "" && resp.StatusCode == http.StatusUnauthorized {
			msg = "Invalid credentials"
		}
		return &LoginError{StatusCode: resp.StatusCode, Message: msg}
	}

	if s.Mode == ModeBearer {
		if strings.TrimSpace(lr.Token) == "" {
			return errors.New("server did not issue a token; use --auth cookie or pass --token")
		}
		s.setToken(lr.Token)
	}
	slog.Info("Logged in", "server", s.BaseURL, "mode", s.Mode)
	return s.persist(ctx)
}

// Logout tells the server and forgets local credentials. Local state is cleared even when the
// server cannot be reached.
func (s *Session) Logout(ctx context.Context) error {
	var serverErr error
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/logout", nil)
	if err == nil {
		var resp *http.Response
		resp, serverErr = s.client.Do(req)
		if serverErr == nil {
			_ = resp.Body.Close()
		}
	}
	if err := s.Forget(ctx); err != nil {
		return err
	}
	if serverErr != nil {
		return fmt.Errorf("logged out locally; server unreachable: %w", serverErr)
	}
	return nil
}

// Forget drops local credentials, e.g. after the server answered 401.
func (s *Session) Forget(ctx context.Context) error {
	s.setToken("")
	if err := s.jar.reset(); err != nil {
		return err
	}
	if s.prefs == nil {
		return nil
	}
	if err := s.prefs.DeletePref(ctx, store.PrefSessionCookies); err != nil {
		return err
	}
	return s.prefs.DeletePref(ctx, store.PrefSessionToken)
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Session) persist(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}
	if s.Mode == ModeBearer {
		return s.prefs.SetPref(ctx, store.PrefSessionToken, s.bearer())
	}
	var saved []savedCookie
	for _, c := range s.jar.Cookies(s.base) {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}
	b, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return s.prefs.SetPref(ctx, store.PrefSessionCookies, string(b))
}

func (s *Session) restore(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}
	if s.Mode == ModeBearer {
		if s.bearer() != "" {
			return nil
		}
		v, ok, err := s.prefs.GetPref(ctx, store.PrefSessionToken)
		if err != nil || !ok {
			return err
		}
		s.setToken(v)
		return nil
	}
	v, ok, err := s.prefs.GetPref(ctx, store.PrefSessionCookies)
	if err != nil || !ok {
		return err
	}
	var saved []savedCookie
	if err := json.Unmarshal([]byte(v), &saved); err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	s.jar.SetCookies(s.base, cookies)
	return nil
}

// bearer is the current token; requests read it while Login and Forget run on other goroutines.
func (s *Session) bearer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) setToken(v string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(v)
	s.mu.Unlock()
}

// resettableJar is a cookie jar that can be emptied while the client holding it is in use.
type resettableJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newResettableJar() (*resettableJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &resettableJar{jar: jar}, nil
}

func (j *resettableJar) current() *cookiejar.Jar {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.current().SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie { return j.current().Cookies(u) }

func (j *resettableJar) reset() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

type bearerTransport struct {
	session *Session
	next    http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := t.session.bearer(); tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.next.RoundTrip(req)
}
