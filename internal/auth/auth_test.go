package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"photomaker/internal/devserver"
	"photomaker/internal/store"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeCookie},
		{in: "Cookie", want: ModeCookie},
		{in: " bearer ", want: ModeBearer},
		{in: "basic", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestSession_LoginPersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeCookie, ModeBearer} {
		mode := mode
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			srv := httptest.NewServer(devserver.New(devserver.Config{}).Handler())
			defer srv.Close()
			prefs := store.Store{Dir: t.TempDir()}

			s, err := Open(ctx, srv.URL, mode, prefs, "")
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if s.LoggedIn() {
				t.Fatalf("fresh session should not be logged in")
			}

			err = s.Login(ctx, "admin", "nope")
			var le *LoginError
			if !errors.As(err, &le) || le.StatusCode != http.StatusUnauthorized || le.Message != "Invalid credentials" {
				t.Fatalf("expected LoginError, got %v", err)
			}

			if err := s.Login(ctx, "admin", "change-this"); err != nil {
				t.Fatalf("Login: %v", err)
			}
			if !s.LoggedIn() {
				t.Fatalf("expected logged in")
			}

			// A second process picks the session up from the store.
			again, err := Open(ctx, srv.URL, mode, prefs, "")
			if err != nil {
				t.Fatalf("Open again: %v", err)
			}
			if !again.LoggedIn() {
				t.Fatalf("session not restored")
			}
			resp, err := again.Client().Post(srv.URL+"/upload", "text/plain", nil)
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				t.Fatalf("restored session was rejected")
			}

			if err := again.Logout(ctx); err != nil {
				t.Fatalf("Logout: %v", err)
			}
			if again.LoggedIn() {
				t.Fatalf("still logged in after logout")
			}
			third, _ := Open(ctx, srv.URL, mode, prefs, "")
			if third.LoggedIn() {
				t.Fatalf("logout did not clear persisted credentials")
			}
		})
	}
}

func TestOpen_RejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "not a url", ModeCookie, nil, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBearer_ExplicitToken(t *testing.T) {
	t.Parallel()

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.URL, ModeBearer, nil, "tok-123")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp, err := s.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestSession_ForgetDuringRequests(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var last string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		last = r.Header.Get("Authorization")
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "x", Path: "/"})
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.URL, ModeBearer, nil, "tok-123")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				resp, err := s.Client().Get(srv.URL)
				if err != nil {
					return
				}
				resp.Body.Close()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		if err := s.Forget(context.Background()); err != nil {
			t.Fatalf("forget: %v", err)
		}
	}
	wg.Wait()

	if s.LoggedIn() {
		t.Fatalf("expected no credentials after forget")
	}
	resp, err := s.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	mu.Lock()
	defer mu.Unlock()
	if last != "" {
		t.Fatalf("Authorization after forget = %q", last)
	}
}
