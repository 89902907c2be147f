package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

const (
	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 4096

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	breakerInterval = time.Minute

	defaultRequestTimeout = 10 * time.Second
	defaultReconnectMin   = 500 * time.Millisecond
	defaultReconnectMax   = 30 * time.Second
)

// FirebaseConfig configures a FirebaseStore.
type FirebaseConfig struct {
	// DatabaseURL is the database root, without a trailing .json.
	DatabaseURL string

	// APIKey is the web API key. Required when AnonymousAuth is set.
	APIKey string

	// AnonymousAuth signs in anonymously and sends the ID token with
	// every request.
	AnonymousAuth bool

	// RequestTimeout bounds each REST call. Streams are unbounded.
	RequestTimeout time.Duration

	// IdentityURL and TokenURL override the Google endpoints.
	IdentityURL string
	TokenURL    string

	// ReconnectMin and ReconnectMax bound the stream reconnect backoff.
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// HTTPClient is used for REST calls, streams and sign-in. Its own
	// Timeout must be zero for streams to survive.
	HTTPClient *http.Client

	Logger Logger
}

// FirebaseStore talks to a Firebase Realtime Database over its REST API.
// Reads and writes go through a circuit breaker; subscriptions use the
// server-sent-events endpoint and reconnect with exponential backoff.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type FirebaseStore struct {
	base    *url.URL
	client  *http.Client
	timeout time.Duration
	tokens  *tokenSource
	breaker *gobreaker.CircuitBreaker
	logger  Logger

	reconnectMin time.Duration
	reconnectMax time.Duration

	mu     sync.Mutex
	subs   map[*Subscription]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewFirebaseStore validates cfg and returns a client. No request is made
// until the first operation.
func NewFirebaseStore(cfg FirebaseConfig) (*FirebaseStore, error) {
	base, err := url.Parse(strings.TrimRight(cfg.DatabaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("rtdb: invalid database url %q", cfg.DatabaseURL)
	}

	s := &FirebaseStore{
		base:         base,
		client:       cfg.HTTPClient,
		timeout:      cfg.RequestTimeout,
		logger:       cfg.Logger,
		reconnectMin: cfg.ReconnectMin,
		reconnectMax: cfg.ReconnectMax,
		subs:         make(map[*Subscription]context.CancelFunc),
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if s.timeout <= 0 {
		s.timeout = defaultRequestTimeout
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.reconnectMin <= 0 {
		s.reconnectMin = defaultReconnectMin
	}
	if s.reconnectMax <= 0 {
		s.reconnectMax = defaultReconnectMax
	}

	if cfg.AnonymousAuth {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: api key required for anonymous auth", ErrSignIn)
		}
		s.tokens = &tokenSource{
			apiKey:      cfg.APIKey,
			identityURL: firstNonEmpty(cfg.IdentityURL, DefaultIdentityURL),
			tokenURL:    firstNonEmpty(cfg.TokenURL, DefaultTokenURL),
			client:      s.client,
			now:         time.Now,
		}
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "rtdb",
		Interval: breakerInterval,
		Timeout:  breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerFailures
		},
		// Permission and validation errors say nothing about availability.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidPath) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("store circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return s, nil
}

// SignIn performs anonymous sign-in now instead of on first use, so a bad
// API key surfaces at startup. It is a no-op without AnonymousAuth.
func (s *FirebaseStore) SignIn(ctx context.Context) error {
	if s.tokens == nil {
		return nil
	}
	if _, err := s.tokens.Token(ctx); err != nil {
		return err
	}
	s.logger.Info("signed in anonymously", "uid", s.tokens.UID())
	return nil
}

// Get implements Store.
func (s *FirebaseStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := s.check(path); err != nil {
		return Snapshot{}, err
	}
	clean := CleanPath(path)
	if isInfoPath(clean) {
		return s.getInfo(ctx, clean)
	}

	var value any
	err := s.call(ctx, func(ctx context.Context) error {
		return s.rest(ctx, http.MethodGet, clean, nil, nil, &value)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{path: clean, value: prune(value)}, nil
}

// Set implements Store. A nil value issues a DELETE.
func (s *FirebaseStore) Set(ctx context.Context, path string, value any) error {
	if err := s.check(path); err != nil {
		return err
	}
	if isInfoPath(path) {
		return fmt.Errorf("%w: %s", ErrReadOnlyPath, path)
	}
	clean := CleanPath(path)

	method := http.MethodPut
	var body []byte
	if value == nil {
		method = http.MethodDelete
	} else {
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("rtdb: encoding %q: %w", clean, err)
		}
		body = b
	}

	return s.call(ctx, func(ctx context.Context) error {
		return s.rest(ctx, method, clean, url.Values{"print": {"silent"}}, body, nil)
	})
}

// Connected implements Store with a shallow read of the root; the REST
// API does not serve .info/connected.
func (s *FirebaseStore) Connected(ctx context.Context) (bool, error) {
	if err := s.check(""); err != nil {
		return false, err
	}
	err := s.call(ctx, func(ctx context.Context) error {
		var ignored any
		return s.rest(ctx, http.MethodGet, "", url.Values{"shallow": {"true"}}, nil, &ignored)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FirebaseStore) getInfo(ctx context.Context, clean string) (Snapshot, error) {
	if clean != InfoConnectedPath {
		return Snapshot{path: clean}, nil
	}
	ok, err := s.Connected(ctx)
	if err != nil && !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrRequestFailed) {
		return Snapshot{}, err
	}
	return Snapshot{path: clean, value: ok}, nil
}

// Close implements Store. It cancels every stream and waits for them.
func (s *FirebaseStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancels := make([]context.CancelFunc, 0, len(s.subs))
	for _, cancel := range s.subs {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *FirebaseStore) check(path string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrStoreClosed
	}
	return validatePath(path)
}

// call runs fn through the circuit breaker with the request timeout.
func (s *FirebaseStore) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// rest performs one REST request, retrying once with a fresh token on 401.
func (s *FirebaseStore) rest(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	for attempt := 0; ; attempt++ {
		req, err := s.newRequest(ctx, method, path, query, body)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, displayPath(path), err)
		}

		if resp.StatusCode == http.StatusUnauthorized && s.tokens != nil && attempt == 0 {
			drain(resp)
			s.tokens.Invalidate()
			continue
		}

		err = decodeResponse(resp, method, path, out)
		resp.Body.Close()
		return err
	}
}

func (s *FirebaseStore) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	u, err := s.endpoint(ctx, path, query)
	if err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("rtdb: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// endpoint builds {base}/{path}.json?auth=... for path.
func (s *FirebaseStore) endpoint(ctx context.Context, path string, query url.Values) (string, error) {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path + ".json"
	if path == "" {
		u.Path = strings.TrimRight(s.base.Path, "/") + "/.json"
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if s.tokens != nil {
		tok, err := s.tokens.Token(ctx)
		if err != nil {
			return "", err
		}
		q.Set("auth", tok)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeResponse(resp *http.Response, method, path string, out any) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: %s", ErrUnauthorized, method, displayPath(path), errorMessage(resp))
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrRequestFailed, method, displayPath(path), resp.StatusCode, errorMessage(resp))
	}
	if out == nil {
		drain(resp)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding %s: %w", ErrRequestFailed, displayPath(path), err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failed response.
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort
	resp.Body.Close()
}

func displayPath(p string) string {
	return "/" + p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
