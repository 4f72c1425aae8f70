package linkedgroups

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callbackFixture struct {
	server  *CallbackServer
	ts      *httptest.Server
	browser *http.Client
}

func newCallbackFixture(t *testing.T) *callbackFixture {
	provider := newFakeProvider(t)
	conf := newTestConfig(t, provider, "http://127.0.0.1:53682/callback")

	session, err := NewAuthSession("test", conf, nil, nil)
	require.NoError(t, err)

	server, err := NewCallbackServer(session)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &callbackFixture{
		server:  server,
		ts:      ts,
		browser: newBrowser(t, false),
	}
}

func (f *callbackFixture) get(t *testing.T, path string) (*http.Response, string) {
	resp, err := f.browser.Get(f.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// start enters the flow and returns the authorization link the browser is
// sent to.
func (f *callbackFixture) start(t *testing.T) *url.URL {
	resp, _ := f.get(t, "/auth")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	link, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return link
}

func (f *callbackFixture) result(t *testing.T) AuthorizationResult {
	select {
	case result := <-f.server.Results():
		return result
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
		return AuthorizationResult{}
	}
}

func TestCallbackServerAuthorized(t *testing.T) {
	f := newCallbackFixture(t)

	link := f.start(t)
	q := link.Query()
	assert.Equal(t, "/authorize", link.Path)
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://127.0.0.1:53682/callback", q.Get("redirect_uri"))
	require.NotEmpty(t, q.Get("state"))

	resp, body := f.get(t, "/callback?code=abc&state="+url.QueryEscape(q.Get("state")))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Success!")

	result := f.result(t)
	assert.Equal(t, OutcomeAuthorized, result.Outcome)
	assert.Equal(t, "abc", result.Code)
}

func TestCallbackServerDenied(t *testing.T) {
	f := newCallbackFixture(t)
	state := f.start(t).Query().Get("state")

	resp, body := f.get(t, "/callback?error=access_denied&error_description=the+user+denied&state="+url.QueryEscape(state))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Failure!")
	assert.Contains(t, body, "access_denied")

	result := f.result(t)
	assert.Equal(t, OutcomeDenied, result.Outcome)
	assert.Equal(t, "access_denied", result.Error)
	assert.Equal(t, "the user denied", result.ErrorDescription)
}

func TestCallbackServerForgedState(t *testing.T) {
	f := newCallbackFixture(t)
	f.start(t)

	resp, _ := f.get(t, "/callback?code=abc&state=forged")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	result := f.result(t)
	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Empty(t, result.Code)
}

func TestCallbackServerStateFromAnotherBrowser(t *testing.T) {
	f := newCallbackFixture(t)
	state := f.start(t).Query().Get("state")

	f.browser = newBrowser(t, false)
	resp, _ := f.get(t, "/callback?code=abc&state="+url.QueryEscape(state))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, OutcomeCancelled, f.result(t).Outcome)
}

func TestCallbackServerWithoutResponse(t *testing.T) {
	f := newCallbackFixture(t)
	state := f.start(t).Query().Get("state")

	resp, body := f.get(t, "/callback?state="+url.QueryEscape(state))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "waiting for authorization response")

	select {
	case result := <-f.server.Results():
		t.Fatalf("unexpected result %v", result.Outcome)
	default:
	}

	resp, _ = f.get(t, "/callback?code=abc&state="+url.QueryEscape(state))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc", f.result(t).Code)
}

func TestCallbackServerNoPendingAuthorization(t *testing.T) {
	f := newCallbackFixture(t)

	resp, body := f.get(t, "/callback?code=abc&state=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, ErrorNoPendingAuthorization.Error())

	select {
	case result := <-f.server.Results():
		t.Fatalf("unexpected result %v", result.Outcome)
	default:
	}
}

func TestCallbackServerFavicon(t *testing.T) {
	f := newCallbackFixture(t)

	resp, _ := f.get(t, "/favicon.ico")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallbackServerCancel(t *testing.T) {
	f := newCallbackFixture(t)
	assert.Equal(t, OutcomeCancelled, f.server.Cancel().Outcome)

	state := f.start(t).Query().Get("state")
	assert.Equal(t, OutcomeCancelled, f.server.Cancel().Outcome)

	resp, _ := f.get(t, "/callback?code=abc&state="+url.QueryEscape(state))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, OutcomeCancelled, f.result(t).Outcome)
}

func TestNewCallbackServerRequiresLoopback(t *testing.T) {
	provider := newFakeProvider(t)
	conf := newTestConfig(t, provider, "https://pnotes.sourceforge.net/auth.htm")

	session, err := NewAuthSession("test", conf, nil, nil)
	require.NoError(t, err)

	_, err = NewCallbackServer(session)
	assert.ErrorIs(t, err, ErrorInvalidRedirectURL)
}

func TestIsLoopbackURL(t *testing.T) {
	testCases := []struct {
		url      string
		expected bool
	}{
		{"http://127.0.0.1:53682/callback", true},
		{"http://localhost/callback", true},
		{"http://[::1]:8080/", true},
		{"https://127.0.0.1/callback", false},
		{"http://pnotes.sourceforge.net/auth.htm", false},
		{"http://10.0.0.1/callback", false},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsLoopbackURL(mustParse(t, tc.url)))
		})
	}
}
