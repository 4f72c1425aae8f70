package linkedgroups

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/rayark/linkedgroups/linkedin"
	"github.com/rayark/linkedgroups/state_handler"
)

// AuthSession holds the OAuth client of the LinkedIn application and the
// token it obtained.
type AuthSession struct {
	name         string
	cookieStore  *sessions.CookieStore
	client       *oauth2.Config
	stateHandler state_handler.Handler
	store        TokenStore
	baseClient   *http.Client

	mu        sync.Mutex
	seedToken string
}

// NewAuthSession creates a session. baseClient carries the requests of the
// token endpoint and of the API; nil means http.DefaultClient.
func NewAuthSession(name string, conf *Config, stateHandler state_handler.Handler, baseClient *http.Client) (*AuthSession, error) {
	client := &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       conf.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   conf.AuthURL,
			TokenURL:  conf.TokenURL,
			AuthStyle: linkedin.Endpoint.AuthStyle,
		},
		RedirectURL: conf.RedirectURL,
	}

	cookieStore, err := newCookieStore(conf.Cookie)
	if err != nil {
		return nil, err
	}

	if stateHandler == nil {
		stateHandler = state_handler.NewCookieHandler(name + "_state")
	}
	if baseClient == nil {
		baseClient = http.DefaultClient
	}

	return &AuthSession{
		name:         name,
		cookieStore:  cookieStore,
		client:       client,
		stateHandler: stateHandler,
		store:        conf.TokenStore(),
		seedToken:    conf.AccessToken,
		baseClient:   baseClient,
	}, nil
}

// RedirectURL is where the provider sends the browser after authorization.
func (s *AuthSession) RedirectURL() string {
	return s.client.RedirectURL
}

// AuthCodeURL builds the authorization link carrying state.
func (s *AuthSession) AuthCodeURL(state string) string {
	return s.client.AuthCodeURL(state)
}

func (s *AuthSession) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
}

// Exchange trades an authorization code for a token and stores it.
func (s *AuthSession) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.client.Exchange(s.context(ctx), code)
	if err != nil {
		return nil, WrapError(ErrorStringFailedToExchangeAuthorizationCode, err)
	}

	err = s.store.PutToken(token)
	if err != nil {
		return nil, WrapError(ErrorStringUnableToStoreToken, err)
	}
	log.WithField("session", s.name).Info("access token saved")

	return token, nil
}

// Token returns the stored token, falling back to the configured access
// token.
func (s *AuthSession) Token() (*oauth2.Token, error) {
	token, err := s.store.GetToken()
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seedToken != "" {
		return &oauth2.Token{AccessToken: s.seedToken, TokenType: "Bearer"}, nil
	}
	return nil, ErrorNoToken
}

// HasToken reports whether an access token is available.
func (s *AuthSession) HasToken() bool {
	token, err := s.Token()
	return err == nil && token != nil
}

// Forget drops the stored token so that the next run authorizes again.
func (s *AuthSession) Forget() error {
	s.mu.Lock()
	s.seedToken = ""
	s.mu.Unlock()
	return s.store.DeleteToken()
}

// Client returns an HTTP client authorizing its requests with the session
// token. The token is looked up on every request, so a later authorization
// of the session takes effect at once. Refreshed tokens are written back to
// the store.
func (s *AuthSession) Client(ctx context.Context) *http.Client {
	ts := &persistingTokenSource{
		ctx:     s.context(ctx),
		session: s,
	}

	// oauth2.NewClient would cache the first token in a ReuseTokenSource
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   s.baseClient.Transport,
			Source: ts,
		},
		CheckRedirect: s.baseClient.CheckRedirect,
		Jar:           s.baseClient.Jar,
		Timeout:       s.baseClient.Timeout,
	}
}

func newCookieStore(conf *CookieConfig) (*sessions.CookieStore, error) {
	var signingKey, encryptionKey []byte
	var err error

	if conf != nil {
		signingKey, err = base64.StdEncoding.DecodeString(conf.SigningKey)
		if err != nil {
			return nil, err
		}

		encryptionKey, err = base64.StdEncoding.DecodeString(conf.EncryptionKey)
		if err != nil {
			return nil, err
		}
	} else {
		signingKey = securecookie.GenerateRandomKey(64)
		encryptionKey = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(signingKey, encryptionKey)
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	return store, nil
}
