// Package linkedgroups provides a LinkedIn group browser built on an OAuth
// authorization-code client.
package linkedgroups

import (
	"net/url"
	"strings"
	"sync"
)

// Outcome is the terminal classification of an authorization attempt.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeAuthorized
	OutcomeDenied
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeDenied:
		return "denied"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// AuthorizationResult carries the authorization code on success, or the
// error reported by the provider when the user denied access.
type AuthorizationResult struct {
	Outcome          Outcome
	Code             string
	Error            string
	ErrorDescription string
}

// Err converts a terminal result to an error, nil when authorized.
func (r AuthorizationResult) Err() error {
	switch r.Outcome {
	case OutcomeAuthorized:
		return nil
	case OutcomeDenied:
		return &DeniedError{Code: r.Error, Description: r.ErrorDescription}
	default:
		return ErrorAuthorizationCancelled
	}
}

// Values holds decoded query parameters. The first occurrence of a key wins.
type Values map[string]string

func (v Values) Get(key string) string {
	return v[key]
}

func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// ParseQuery decodes a query string such as "?code=abc&state=xyz". Pieces
// that do not split into exactly one key and one value are skipped.
func ParseQuery(s string) Values {
	values := make(Values)
	s = strings.TrimPrefix(s, "?")
	for _, pair := range strings.Split(s, "&") {
		kv := strings.Split(pair, "=")
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		if values.Has(key) {
			continue
		}
		values[key] = value
	}
	return values
}

// AuthorizationRequest watches the navigations of a browser that was sent to
// an authorization link, and settles once the browser reaches the redirect
// URI carried by that link.
type AuthorizationRequest struct {
	authLink    string
	state       string
	redirectURI *url.URL

	mu     sync.Mutex
	result AuthorizationResult
}

// NewAuthorizationRequest remembers the state and redirect_uri parameters of
// authLink.
func NewAuthorizationRequest(authLink string) (*AuthorizationRequest, error) {
	link, err := url.Parse(authLink)
	if err != nil {
		return nil, WrapError(ErrorInvalidAuthorizationLink.Error(), err)
	}

	qs := ParseQuery(link.RawQuery)

	redirect := qs.Get("redirect_uri")
	if redirect == "" {
		return nil, ErrorMissingRedirectURI
	}
	redirectURI, err := url.Parse(redirect)
	if err != nil {
		return nil, WrapError(ErrorInvalidAuthorizationLink.Error(), err)
	}

	return &AuthorizationRequest{
		authLink:    authLink,
		state:       qs.Get("state"),
		redirectURI: redirectURI,
	}, nil
}

// AuthLink is the link the browser should be sent to.
func (ar *AuthorizationRequest) AuthLink() string {
	return ar.authLink
}

// State is the nonce issued with the authorization link.
func (ar *AuthorizationRequest) State() string {
	return ar.state
}

// RedirectURI is the endpoint the provider sends the browser back to.
func (ar *AuthorizationRequest) RedirectURI() *url.URL {
	u := *ar.redirectURI
	return &u
}

// Result returns the current result, OutcomePending until settled.
func (ar *AuthorizationRequest) Result() AuthorizationResult {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.result
}

// Cancel settles a pending request as cancelled.
func (ar *AuthorizationRequest) Cancel() AuthorizationResult {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if ar.result.Outcome == OutcomePending {
		ar.result = AuthorizationResult{Outcome: OutcomeCancelled}
	}
	return ar.result
}

// Navigated inspects a URL the browser navigated to. It reports true once the
// request is settled; navigations elsewhere, or to the redirect URI without
// a query, leave it pending.
func (ar *AuthorizationRequest) Navigated(u *url.URL) (AuthorizationResult, bool) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.result.Outcome != OutcomePending {
		return ar.result, true
	}
	if !ar.isRedirectURI(u) {
		return ar.result, false
	}
	if u.RawQuery == "" {
		return ar.result, false
	}

	qs := ParseQuery(u.RawQuery)

	// state must echo the nonce issued with the link
	if !qs.Has("state") || qs.Get("state") != ar.state {
		ar.result = AuthorizationResult{Outcome: OutcomeCancelled}
		return ar.result, true
	}

	switch {
	case qs.Has("code"):
		ar.result = AuthorizationResult{
			Outcome: OutcomeAuthorized,
			Code:    qs.Get("code"),
		}
	case qs.Has("error"):
		ar.result = AuthorizationResult{
			Outcome:          OutcomeDenied,
			Error:            qs.Get("error"),
			ErrorDescription: qs.Get("error_description"),
		}
	default:
		return ar.result, false
	}

	return ar.result, true
}

func (ar *AuthorizationRequest) isRedirectURI(u *url.URL) bool {
	if u == nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, ar.redirectURI.Scheme) {
		return false
	}
	if !strings.EqualFold(u.Hostname(), ar.redirectURI.Hostname()) {
		return false
	}
	return absolutePath(u) == absolutePath(ar.redirectURI)
}

func absolutePath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
