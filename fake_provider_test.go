package linkedgroups

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "test-client"
	testClientSecret = "test-secret"
	testCode         = "the-code"
)

// fakeProvider stands in for the authorization and token endpoints.
type fakeProvider struct {
	*httptest.Server

	mu        sync.Mutex
	deny      bool
	exchanges int
	refreshes int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	p := &fakeProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", p.authorize)
	mux.HandleFunc("/token", p.token)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)

	return p
}

func (p *fakeProvider) setDeny(deny bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deny = deny
}

func (p *fakeProvider) counts() (exchanges int, refreshes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchanges, p.refreshes
}

func (p *fakeProvider) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || q.Get("client_id") != testClientID {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	deny := p.deny
	p.mu.Unlock()

	response := url.Values{"state": {q.Get("state")}}
	if deny {
		response.Set("error", "access_denied")
		response.Set("error_description", "the user denied your request")
	} else {
		response.Set("code", testCode)
	}
	redirect.RawQuery = response.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil || r.PostForm.Get("client_id") != testClientID || r.PostForm.Get("client_secret") != testClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != testCode {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		p.exchanges++
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "new-token",
			"token_type":    "bearer",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != "refresh" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		p.refreshes++
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "refreshed-token",
			"token_type":    "bearer",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestConfig(t *testing.T, provider *fakeProvider, redirectURL string) *Config {
	conf := &Config{
		OAuthConfig: OAuthConfig{
			ClientID:     testClientID,
			ClientSecret: testClientSecret,
			RedirectURL:  redirectURL,
			AuthURL:      provider.URL + "/authorize",
			TokenURL:     provider.URL + "/token",
		},
		TokenFile: filepath.Join(t.TempDir(), "token.json"),
	}
	conf.applyDefaults()
	require.NoError(t, conf.Validate())
	return conf
}

// newBrowser returns a client keeping cookies like a browser does. It stops
// at redirects unless follow is set.
func newBrowser(t *testing.T, follow bool) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{Jar: jar}
	if !follow {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}
