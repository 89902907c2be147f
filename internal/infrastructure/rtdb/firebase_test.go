package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeFirebase serves the REST, streaming and identity endpoints on top of
// a MemoryStore.
type fakeFirebase struct {
	t      *testing.T
	data   *MemoryStore
	server *httptest.Server

	mu       sync.Mutex
	token    string
	signUps  int
	refreshs int
	reject   map[string]int // path -> status to return
	streams  int32
}

func newFakeFirebase(t *testing.T) *fakeFirebase {
	t.Helper()
	f := &fakeFirebase{t: t, data: NewMemoryStore(), reject: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/identity", f.handleSignUp)
	mux.HandleFunc("/token", f.handleRefresh)
	mux.HandleFunc("/", f.handleData)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeFirebase) store(t *testing.T, anonymous bool) *FirebaseStore {
	t.Helper()
	s, err := NewFirebaseStore(FirebaseConfig{
		DatabaseURL:   f.server.URL,
		APIKey:        "test-key",
		AnonymousAuth: anonymous,
		IdentityURL:   f.server.URL + "/identity",
		TokenURL:      f.server.URL + "/token",
		ReconnectMin:  10 * time.Millisecond,
		ReconnectMax:  50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewFirebaseStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() }) //nolint:errcheck // Test cleanup
	return s
}

func (f *fakeFirebase) issue() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "anon-uid",
		ID:        fmt.Sprint(f.signUps + f.refreshs),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("secret"))
	if err != nil {
		f.t.Errorf("signing token: %v", err)
	}
	f.token = signed
	return f.token
}

func (f *fakeFirebase) revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = "revoked"
}

func (f *fakeFirebase) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") != "test-key" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API_KEY_INVALID"}}`)
		return
	}
	f.mu.Lock()
	f.signUps++
	f.mu.Unlock()
	tok := f.issue()
	_ = json.NewEncoder(w).Encode(map[string]string{
		"idToken": tok, "refreshToken": "refresh-1", "expiresIn": "3600", "localId": "anon-uid",
	})
}

func (f *fakeFirebase) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("refresh_token") != "refresh-1" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.refreshs++
	f.mu.Unlock()
	tok := f.issue()
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id_token": tok, "refresh_token": "refresh-1", "expires_in": "3600", "user_id": "anon-uid",
	})
}

func (f *fakeFirebase) authorised(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token == "" || r.URL.Query().Get("auth") == f.token
}

func (f *fakeFirebase) handleData(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
	if !f.authorised(r) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"Auth token is expired"}`)
		return
	}
	f.mu.Lock()
	status := f.reject[path]
	f.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":"rejected by test"}`)
		return
	}

	ctx := r.Context()
	switch {
	case r.Header.Get("Accept") == "text/event-stream":
		f.stream(w, r, path)
	case r.Method == http.MethodGet:
		snap, _ := f.data.Get(ctx, path)
		if r.URL.Query().Get("shallow") == "true" {
			_, _ = io.WriteString(w, "true")
			return
		}
		_ = json.NewEncoder(w).Encode(snap.Value())
	case r.Method == http.MethodPut:
		var v any
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = f.data.Set(ctx, path, v)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete:
		_ = f.data.Set(ctx, path, nil)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "null")
	}
}

func (f *fakeFirebase) stream(w http.ResponseWriter, r *http.Request, path string) {
	atomic.AddInt32(&f.streams, 1)
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)

	sub, err := f.data.Subscribe(r.Context(), path)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	for snap := range sub.Snapshots() {
		payload, _ := json.Marshal(map[string]any{"path": "/", "data": snap.Value()})
		fmt.Fprintf(w, "event: put\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}

func TestFirebaseStore_GetSetWithAnonymousAuth(t *testing.T) {
	f := newFakeFirebase(t)
	s := f.store(t, true)
	ctx := context.Background()

	if err := s.SignIn(ctx); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	settings := map[string]any{
		"humidityThreshold":     map[string]float64{"min": 40, "max": 80},
		"temperatureThreshold":  map[string]float64{"min": 15, "max": 30},
		"soilMoistureThreshold": map[string]float64{"min": 30, "max": 70},
	}
	if err := s.Set(ctx, "settings", settings); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	snap, err := s.Get(ctx, "settings/temperatureThreshold")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v, _ := snap.Child("max").Float(); v != 30 {
		t.Errorf("temperature max = %v, want 30", v)
	}

	if err := s.Set(ctx, "settings", nil); err != nil {
		t.Fatalf("Set(nil) error = %v", err)
	}
	if snap, _ := s.Get(ctx, "settings"); snap.Exists() { //nolint:errcheck // asserted via Exists
		t.Error("settings still present after delete")
	}

	f.mu.Lock()
	signUps := f.signUps
	f.mu.Unlock()
	if signUps != 1 {
		t.Errorf("sign-ups = %d, want 1", signUps)
	}
}

func TestFirebaseStore_RetriesOnceAfterExpiredToken(t *testing.T) {
	f := newFakeFirebase(t)
	s := f.store(t, true)
	ctx := context.Background()

	if err := s.SignIn(ctx); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	f.revoke()

	// The cached token is now rejected; the client refreshes and retries.
	if _, err := s.Get(ctx, "settings"); err != nil {
		t.Fatalf("Get() after revoke error = %v", err)
	}
	f.mu.Lock()
	refreshs := f.refreshs
	f.mu.Unlock()
	if refreshs != 1 {
		t.Errorf("refreshes = %d, want 1", refreshs)
	}
}

func TestFirebaseStore_BadAPIKey(t *testing.T) {
	f := newFakeFirebase(t)
	s, err := NewFirebaseStore(FirebaseConfig{
		DatabaseURL:   f.server.URL,
		APIKey:        "wrong",
		AnonymousAuth: true,
		IdentityURL:   f.server.URL + "/identity",
	})
	if err != nil {
		t.Fatalf("NewFirebaseStore() error = %v", err)
	}
	defer s.Close() //nolint:errcheck // Test cleanup

	err = s.SignIn(context.Background())
	if !errors.Is(err, ErrSignIn) || !strings.Contains(err.Error(), "API_KEY_INVALID") {
		t.Errorf("SignIn() error = %v, want ErrSignIn with server message", err)
	}
}

func TestFirebaseStore_ErrorMapping(t *testing.T) {
	f := newFakeFirebase(t)
	s := f.store(t, false)
	ctx := context.Background()

	f.reject["Pump/Pump1/status"] = http.StatusForbidden
	err := s.Set(ctx, "Pump/Pump1/status", "on")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("403 error = %v, want ErrUnauthorized", err)
	}

	f.reject["settings"] = http.StatusInternalServerError
	_, err = s.Get(ctx, "settings")
	if !errors.Is(err, ErrRequestFailed) || !strings.Contains(err.Error(), "rejected by test") {
		t.Errorf("500 error = %v, want ErrRequestFailed with message", err)
	}

	if err := s.Set(ctx, "bad.key", 1); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("invalid path error = %v", err)
	}
	if err := s.Set(ctx, InfoConnectedPath, true); !errors.Is(err, ErrReadOnlyPath) {
		t.Errorf(".info write error = %v", err)
	}
}

func TestFirebaseStore_BreakerOpens(t *testing.T) {
	f := newFakeFirebase(t)
	s := f.store(t, false)
	ctx := context.Background()

	f.reject["settings"] = http.StatusServiceUnavailable
	for i := 0; i < breakerFailures; i++ {
		if _, err := s.Get(ctx, "settings"); !errors.Is(err, ErrRequestFailed) {
			t.Fatalf("attempt %d error = %v", i, err)
		}
	}
	if _, err := s.Get(ctx, "settings"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("after %d failures error = %v, want ErrUnavailable", breakerFailures, err)
	}
}

func TestFirebaseStore_Connected(t *testing.T) {
	f := newFakeFirebase(t)
	s := f.store(t, false)

	ok, err := s.Connected(context.Background())
	if err != nil || !ok {
		t.Fatalf("Connected() = %v, %v", ok, err)
	}

	snap, err := s.Get(context.Background(), InfoConnectedPath)
	if err != nil {
		t.Fatalf("Get(.info/connected) error = %v", err)
	}
	if v, _ := snap.Bool(); !v {
		t.Error(".info/connected = false")
	}

	f.server.Close()
	if ok, _ := s.Connected(context.Background()); ok { //nolint:errcheck // asserted via ok
		t.Error("Connected() = true after server shut down")
	}
}

func TestFirebaseStore_Subscribe(t *testing.T) {
	f := newFakeFirebase(t)
	s := f.store(t, true)
	ctx := context.Background()

	if err := f.data.Set(ctx, "Pump/Pump1", map[string]any{"mode": "manual", "status": "off"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sub, err := s.Subscribe(ctx, "Pump")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	first := next(t, sub)
	if v, _ := first.Child("Pump1/mode").Text(); v != "manual" {
		t.Errorf("initial mode = %q, want manual", v)
	}

	if err := s.Set(ctx, "Pump/Pump1/status", "on"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	snap := next(t, sub)
	if v, _ := snap.Child("Pump1/status").Text(); v != "on" {
		t.Errorf("status after write = %q, want on", v)
	}
	if snap.Path() != "Pump" {
		t.Errorf("snapshot path = %q", snap.Path())
	}
}

func TestFirebaseStore_SubscribeReconnects(t *testing.T) {
	var conns int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&conns, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: put\ndata: {\"path\":\"/\",\"data\":%d}\n\n", n)
		// Returning closes the stream; the client must reconnect.
	}))
	defer srv.Close()

	s, err := NewFirebaseStore(FirebaseConfig{
		DatabaseURL:  srv.URL,
		ReconnectMin: 5 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewFirebaseStore() error = %v", err)
	}
	defer s.Close() //nolint:errcheck // Test cleanup

	sub, err := s.Subscribe(context.Background(), "counter")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-sub.Snapshots():
			if v, _ := snap.Float(); v >= 3 {
				return
			}
		case <-deadline:
			t.Fatalf("no reconnect observed after %d connections", atomic.LoadInt32(&conns))
		}
	}
}

func TestFirebaseStore_SubscribeCancelledByServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: put\ndata: {\"path\":\"/\",\"data\":{\"a\":1}}\n\n")
		_, _ = io.WriteString(w, "event: patch\ndata: {\"path\":\"/\",\"data\":{\"b\":2}}\n\n")
		_, _ = io.WriteString(w, "event: keep-alive\ndata: null\n\n")
		_, _ = io.WriteString(w, "event: cancel\ndata: \"Permission denied\"\n\n")
	}))
	defer srv.Close()

	s, err := NewFirebaseStore(FirebaseConfig{DatabaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewFirebaseStore() error = %v", err)
	}
	defer s.Close() //nolint:errcheck // Test cleanup

	sub, err := s.Subscribe(context.Background(), "x")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	var last Snapshot
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				if !errors.Is(sub.Err(), ErrStreamCancelled) {
					t.Errorf("Err() = %v, want ErrStreamCancelled", sub.Err())
				}
				if last.Exists() {
					if v, _ := last.Child("b").Float(); v != 2 {
						t.Errorf("last snapshot = %v, want patched b=2", last.Value())
					}
				}
				return
			}
			last = snap
		case <-timeout:
			t.Fatal("subscription not ended by cancel event")
		}
	}
}

func TestFirebaseStore_CloseStopsStreams(t *testing.T) {
	f := newFakeFirebase(t)
	s := f.store(t, false)

	sub, err := s.Subscribe(context.Background(), "settings")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	next(t, sub)

	done := make(chan struct{})
	go func() {
		s.Close() //nolint:errcheck // asserted via channel
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return")
	}
	if _, err := s.Subscribe(context.Background(), "settings"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Subscribe after Close = %v, want ErrStoreClosed", err)
	}
}

func TestNewFirebaseStore_Validation(t *testing.T) {
	if _, err := NewFirebaseStore(FirebaseConfig{DatabaseURL: "not a url"}); err == nil {
		t.Error("expected error for relative URL")
	}
	if _, err := NewFirebaseStore(FirebaseConfig{DatabaseURL: "https://x.example.com", AnonymousAuth: true}); !errors.Is(err, ErrSignIn) {
		t.Errorf("missing key error = %v, want ErrSignIn", err)
	}
}

func TestFirebaseStore_Endpoint(t *testing.T) {
	s, err := NewFirebaseStore(FirebaseConfig{DatabaseURL: "https://farm.example.com/"})
	if err != nil {
		t.Fatalf("NewFirebaseStore() error = %v", err)
	}
	tests := map[string]string{
		"":                 "https://farm.example.com/.json",
		"settings":         "https://farm.example.com/settings.json",
		"device_0A1B/data": "https://farm.example.com/device_0A1B/data.json",
	}
	for path, want := range tests {
		got, err := s.endpoint(context.Background(), path, nil)
		if err != nil || got != want {
			t.Errorf("endpoint(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}
