package linkedgroups

import (
	"context"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rayark/zin"
	"github.com/rayark/zin/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	authPath = "auth"

	shutdownTimeout = time.Second
)

var responseTemplate = template.Must(template.New("authResponse").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ if .OK }}Success!{{ else }}Failure!{{ end }}</title>
</head>
<body>
<h1>{{ if .OK }}Success!{{ else }}Failure!{{ end }}</h1>
<hr>
<pre style="width: 750px; white-space: pre-wrap;">
{{ if .OK }}All done. Please go back to the terminal.
{{ else }}Result: {{ .Outcome }}
{{ if .Error }}Error: {{ .Error }}
{{ end }}{{ if .Description }}Description: {{ .Description }}
{{ end }}{{ end }}</pre>
</body>
</html>
`))

type responseData struct {
	OK          bool
	Outcome     string
	Error       string
	Description string
}

// CallbackServer is the loopback endpoint the provider redirects the browser
// to. The browser enters the flow through /auth, which issues the state and
// forwards it to the provider.
type CallbackServer struct {
	session     *AuthSession
	redirectURL *url.URL

	listener net.Listener
	server   *http.Server

	mu      sync.Mutex
	request *AuthorizationRequest
	results chan AuthorizationResult
}

// NewCallbackServer prepares a server for the redirect URL of session, which
// must point at a loopback address over plain http.
func NewCallbackServer(session *AuthSession) (*CallbackServer, error) {
	redirectURL, err := url.Parse(session.RedirectURL())
	if err != nil {
		return nil, err
	}
	if !IsLoopbackURL(redirectURL) {
		return nil, ErrorInvalidRedirectURL
	}

	return &CallbackServer{
		session:     session,
		redirectURL: redirectURL,
		results:     make(chan AuthorizationResult, 1),
	}, nil
}

// IsLoopbackURL reports whether u is an http URL on this machine.
func IsLoopbackURL(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Handler routes /auth and the redirect path.
func (s *CallbackServer) Handler() http.Handler {
	router := httprouter.New()

	def := zin.NewGroup("/", middleware.Logger)
	def.R(router.GET, authPath, zin.WrapF(s.handleAuth))
	def.R(router.GET, "favicon.ico", zin.WrapF(http.NotFound))

	callbackPath := strings.TrimPrefix(s.redirectURL.Path, "/")
	if callbackPath != authPath && callbackPath != "favicon.ico" {
		def.R(router.GET, callbackPath, zin.WrapF(s.handleCallback))
	}

	return router
}

// Start listens on the host and port of the redirect URL.
func (s *CallbackServer) Start() error {
	addr := s.redirectURL.Host
	if s.redirectURL.Port() == "" {
		addr = net.JoinHostPort(s.redirectURL.Hostname(), "80")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapError(ErrorStringUnableToStartListener, err)
	}
	s.listener = listener

	// an ephemeral port becomes part of the redirect URL; the host name stays
	// as configured so that the state cookie reaches the callback
	if s.redirectURL.Port() == "0" {
		port := strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)
		s.redirectURL.Host = net.JoinHostPort(s.redirectURL.Hostname(), port)
		s.session.client.RedirectURL = s.redirectURL.String()
	}

	s.server = &http.Server{Handler: s.Handler()}
	s.server.SetKeepAlivesEnabled(false)

	go func() {
		err := s.server.Serve(listener)
		log.WithError(err).Debug("callback server closed")
	}()

	log.WithField("addr", listener.Addr().String()).Debug("callback server started")
	return nil
}

// AuthURL is the local address that starts the flow in a browser.
func (s *CallbackServer) AuthURL() string {
	u := url.URL{Scheme: "http", Host: s.redirectURL.Host, Path: "/" + authPath}
	return u.String()
}

// Results delivers the terminal result of the flow.
func (s *CallbackServer) Results() <-chan AuthorizationResult {
	return s.results
}

// Cancel settles the pending request, if any, as cancelled.
func (s *CallbackServer) Cancel() AuthorizationResult {
	s.mu.Lock()
	req := s.request
	s.mu.Unlock()

	if req == nil {
		return AuthorizationResult{Outcome: OutcomeCancelled}
	}
	return req.Cancel()
}

// Stop shuts the server down, letting in-flight responses finish.
func (s *CallbackServer) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *CallbackServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	state, err := s.session.stateHandler.Generate(s.session.cookieStore, w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	req, err := NewAuthorizationRequest(s.session.AuthCodeURL(state))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.request = req
	s.mu.Unlock()

	log.WithField("url", req.AuthLink()).Debug("redirecting browser to provider")
	http.Redirect(w, r, req.AuthLink(), http.StatusSeeOther)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	req := s.request
	s.mu.Unlock()

	if req == nil {
		http.Error(w, ErrorNoPendingAuthorization.Error(), http.StatusBadRequest)
		return
	}

	// the state is consumed by Verify, so only a response may spend it
	query := ParseQuery(r.URL.RawQuery)
	if !query.Has("code") && !query.Has("error") {
		http.Error(w, "waiting for authorization response", http.StatusBadRequest)
		return
	}

	var result AuthorizationResult
	var done bool

	err := s.session.stateHandler.Verify(s.session.cookieStore, w, r, query.Get("state"))
	if err != nil {
		log.WithError(err).Warn(ErrorStringInvalidState)
		result, done = req.Cancel(), true
	} else {
		result, done = req.Navigated(s.callbackURL(r))
	}

	if !done {
		http.Error(w, "waiting for authorization response", http.StatusBadRequest)
		return
	}

	select {
	case s.results <- result:
	default:
	}

	status := http.StatusOK
	if result.Outcome != OutcomeAuthorized {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err = responseTemplate.Execute(w, responseData{
		OK:          result.Outcome == OutcomeAuthorized,
		Outcome:     result.Outcome.String(),
		Error:       result.Error,
		Description: result.ErrorDescription,
	})
	if err != nil {
		log.WithError(err).Debug("could not render response")
	}
}

// callbackURL rebuilds the URL the browser navigated to.
func (s *CallbackServer) callbackURL(r *http.Request) *url.URL {
	return &url.URL{
		Scheme:   s.redirectURL.Scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}
