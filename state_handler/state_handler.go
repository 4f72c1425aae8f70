// Package state_handler provides state generator and verifier in OAuth flow.
package state_handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	nonceSize = int(16)
)

// Handler issues the state parameter of an authorization link and checks the
// value echoed back by the provider.
type Handler interface {
	Generate(cookieStore *sessions.CookieStore, w http.ResponseWriter, r *http.Request) (state string, err error)
	Verify(cookieStore *sessions.CookieStore, w http.ResponseWriter, r *http.Request, state string) error
}

func generateNonce() (string, error) {
	nonce := make([]byte, nonceSize)
	n, err := rand.Read(nonce)
	if err != nil {
		return "", err
	}
	if n != nonceSize {
		return "", ErrorShortNonce
	}

	return base64.RawURLEncoding.EncodeToString(nonce), nil
}

// CookieHandler binds the nonce to the browser that started the flow with a
// session cookie. Each nonce verifies once.
type CookieHandler struct {
	CookieName string
}

func NewCookieHandler(cookieName string) CookieHandler {
	return CookieHandler{
		CookieName: cookieName,
	}
}

func (sh CookieHandler) retrieveCookie(cookieStore *sessions.CookieStore, r *http.Request) string {
	session, err := cookieStore.Get(r, sh.CookieName)
	if err != nil {
		return ""
	}

	v, found := session.Values["state"]
	if !found {
		return ""
	}

	nonce, ok := v.(string)
	if !ok {
		return ""
	}

	return nonce
}

func (sh CookieHandler) setCookie(cookieStore *sessions.CookieStore, w http.ResponseWriter, r *http.Request, nonce string) error {
	session, err := cookieStore.New(r, sh.CookieName)
	if err != nil {
		return err
	}
	session.Values["state"] = nonce
	err = session.Save(r, w)
	return err
}

func (sh CookieHandler) deleteCookie(cookieStore *sessions.CookieStore, w http.ResponseWriter, r *http.Request) error {
	session, err := cookieStore.Get(r, sh.CookieName)
	if err != nil {
		return err
	}
	delete(session.Values, "state")
	session.Options.MaxAge = -1
	err = session.Save(r, w)
	return err
}

func (sh CookieHandler) Generate(cookieStore *sessions.CookieStore, w http.ResponseWriter, r *http.Request) (string, error) {
	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}

	err = sh.setCookie(cookieStore, w, r, nonce)
	if err != nil {
		return "", err
	}

	return nonce, nil
}

func (sh CookieHandler) Verify(cookieStore *sessions.CookieStore, w http.ResponseWriter, r *http.Request, state string) error {
	expected := sh.retrieveCookie(cookieStore, r)
	if expected == "" {
		return ErrorNoStateCookie
	}

	if state != expected {
		return ErrorStateMismatch
	}

	return sh.deleteCookie(cookieStore, w, r)
}
