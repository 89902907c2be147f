package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Google identity endpoints for anonymous sign-in and token refresh.
const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1/accounts:signUp"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
)

// tokenRefreshMargin renews ID tokens this long before they expire.
const tokenRefreshMargin = time.Minute

// tokenSource performs anonymous sign-in once and keeps the resulting ID
// token fresh with the refresh token.
type tokenSource struct {
	apiKey      string
	identityURL string
	tokenURL    string
	client      *http.Client
	now         func() time.Time

	mu           sync.Mutex
	idToken      string
	refreshToken string
	uid          string
	expiry       time.Time
}

type signUpResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type identityError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Token returns a valid ID token, signing in or refreshing as needed.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.idToken != "" && t.now().Before(t.expiry.Add(-tokenRefreshMargin)) {
		return t.idToken, nil
	}
	if t.refreshToken != "" {
		if err := t.refreshLocked(ctx); err == nil {
			return t.idToken, nil
		}
		// A dead refresh token means a new anonymous account.
		t.refreshToken = ""
	}
	if err := t.signUpLocked(ctx); err != nil {
		return "", err
	}
	return t.idToken, nil
}

// Invalidate forces the next Token call to refresh.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.idToken = ""
}

// UID returns the anonymous account id, empty before sign-in.
func (t *tokenSource) UID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uid
}

func (t *tokenSource) signUpLocked(ctx context.Context) error {
	body, _ := json.Marshal(map[string]bool{"returnSecureToken": true}) //nolint:errcheck // static value
	endpoint := t.identityURL + "?key=" + url.QueryEscape(t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignIn, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp signUpResponse
	if err := t.do(req, &resp); err != nil {
		return err
	}
	return t.storeLocked(resp.IDToken, resp.RefreshToken, resp.ExpiresIn, resp.LocalID)
}

func (t *tokenSource) refreshLocked(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {t.refreshToken},
	}
	endpoint := t.tokenURL + "?key=" + url.QueryEscape(t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignIn, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := t.do(req, &resp); err != nil {
		return err
	}
	return t.storeLocked(resp.IDToken, resp.RefreshToken, resp.ExpiresIn, resp.UserID)
}

func (t *tokenSource) do(req *http.Request, out any) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignIn, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*16))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrSignIn, err)
	}
	if resp.StatusCode != http.StatusOK {
		var ie identityError
		if json.Unmarshal(data, &ie) == nil && ie.Error.Message != "" {
			return fmt.Errorf("%w: %s", ErrSignIn, ie.Error.Message)
		}
		return fmt.Errorf("%w: status %d", ErrSignIn, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrSignIn, err)
	}
	return nil
}

func (t *tokenSource) storeLocked(idToken, refreshToken, expiresIn, uid string) error {
	if idToken == "" {
		return fmt.Errorf("%w: empty id token", ErrSignIn)
	}
	t.idToken = idToken
	if refreshToken != "" {
		t.refreshToken = refreshToken
	}
	if uid != "" {
		t.uid = uid
	}
	t.expiry = tokenExpiry(idToken, expiresIn, t.now())
	return nil
}

// tokenExpiry prefers the exp claim of the ID token and falls back to the
// expiresIn seconds the endpoint reports. The signature is not checked:
// the token is only ever presented back to the server that issued it.
func tokenExpiry(idToken, expiresIn string, now time.Time) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if secs, err := strconv.Atoi(expiresIn); err == nil && secs > 0 {
		return now.Add(time.Duration(secs) * time.Second)
	}
	return now
}
