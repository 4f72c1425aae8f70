package state_handler

import (
	"net/http"
	"sync"

	"github.com/gorilla/sessions"
)

// StaticHandler hands out one nonce for the lifetime of the handler and
// keeps no cookie. It serves flows where the browser never reaches our
// listener, e.g. when the user pastes the redirect URL back by hand.
type StaticHandler struct {
	mu    sync.Mutex
	nonce string
}

// NewStaticHandler uses nonce as the state; an empty nonce is generated on
// first use.
func NewStaticHandler(nonce string) *StaticHandler {
	return &StaticHandler{nonce: nonce}
}

// Nonce returns the state, generating it if needed.
func (sh *StaticHandler) Nonce() (string, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.nonce == "" {
		nonce, err := generateNonce()
		if err != nil {
			return "", err
		}
		sh.nonce = nonce
	}

	return sh.nonce, nil
}

func (sh *StaticHandler) Generate(_ *sessions.CookieStore, _ http.ResponseWriter, _ *http.Request) (string, error) {
	return sh.Nonce()
}

func (sh *StaticHandler) Verify(_ *sessions.CookieStore, _ http.ResponseWriter, _ *http.Request, state string) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.nonce == "" || state != sh.nonce {
		return ErrorStateMismatch
	}

	return nil
}
