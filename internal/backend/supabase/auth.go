package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"eisen/internal/service"
)

// AuthTimeout is the timeout for auth endpoint calls.
const AuthTimeout = 30 * time.Second

// Session is the stored sign-in of one user.
type Session struct {
	UserID string        `json:"user_id"`
	Email  string        `json:"email"`
	Token  *oauth2.Token `json:"token"`
}

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: not logged in (run: eisen login)", service.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	if s.UserID == "" || s.Token == nil || s.Token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: session incomplete (run: eisen login)", service.ErrUnauthorized)
	}
	return &s, nil
}

// SaveSession writes a session file with mode 0600.
func SaveSession(path string, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Auth talks to the project's auth endpoints.
type Auth struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewAuth creates an auth client. A nil httpClient uses http.DefaultClient.
func NewAuth(baseURL, apiKey string, httpClient *http.Client) *Auth {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Auth{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r tokenResponse) session() *Session {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		tok.Expiry = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return &Session{UserID: r.User.ID, Email: r.User.Email, Token: tok}
}

type authError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e authError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn exchanges an email and password for a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return a.token(ctx, "password", body)
}

// Refresh exchanges a refresh token for a new session.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return a.token(ctx, "refresh_token", body)
}

func (a *Auth) token(ctx context.Context, grant string, body any) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, AuthTimeout)
	defer cancel()

	var resp tokenResponse
	q := url.Values{"grant_type": {grant}}
	if err := a.post(ctx, "/auth/v1/token?"+q.Encode(), "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		return nil, errors.New("auth response missing token or user")
	}
	return resp.session(), nil
}

// SignOut revokes the session's refresh tokens on the server.
func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	ctx, cancel := context.WithTimeout(ctx, AuthTimeout)
	defer cancel()
	return a.post(ctx, "/auth/v1/logout", accessToken, nil, nil)
}

func (a *Auth) post(ctx context.Context, path, bearer string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if resp.StatusCode >= 300 {
		var ae authError
		_ = json.Unmarshal(data, &ae)
		msg := ae.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", service.ErrUnauthorized, msg)
		default:
			return fmt.Errorf("auth: %s (%d)", msg, resp.StatusCode)
		}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// refreshSource mints tokens from the refresh grant.
type refreshSource struct {
	auth *Auth

	mu      sync.Mutex
	refresh string
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.auth.Refresh(context.Background(), s.refresh)
	if err != nil {
		return nil, err
	}
	// Refresh tokens rotate on every use.
	s.refresh = sess.Token.RefreshToken
	return sess.Token, nil
}

// persistingSource saves the session whenever the access token changes.
type persistingSource struct {
	src  oauth2.TokenSource
	path string

	mu      sync.Mutex
	session Session
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token == nil || s.session.Token.AccessToken != tok.AccessToken {
		s.session.Token = tok
		if s.path != "" {
			if err := SaveSession(s.path, &s.session); err != nil {
				return nil, fmt.Errorf("failed to save session: %w", err)
			}
		}
	}
	return tok, nil
}

// TokenSource returns a source that serves sess.Token until it expires,
// then refreshes it and writes the new session back to path.
func (a *Auth) TokenSource(sess *Session, path string) oauth2.TokenSource {
	base := oauth2.ReuseTokenSource(sess.Token, &refreshSource{auth: a, refresh: sess.Token.RefreshToken})
	return &persistingSource{src: base, path: path, session: *sess}
}
