package linkedgroups

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// TokenStore persists the access token between runs.
type TokenStore interface {
	// GetToken returns nil, nil when no token has been stored.
	GetToken() (*oauth2.Token, error)
	PutToken(token *oauth2.Token) error
	DeleteToken() error
}

// FileTokenStore keeps the token as a JSON blob, encrypted with AES-CTR and
// base64 encoded when EncryptionKey is set.
type FileTokenStore struct {
	Path          string
	EncryptionKey []byte
}

func (s *FileTokenStore) GetToken() (*oauth2.Token, error) {
	content, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(s.EncryptionKey) > 0 {
		content, err = s.decrypt(content)
		if err != nil {
			return nil, err
		}
	}

	token := new(oauth2.Token)
	err = json.Unmarshal(content, token)
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, nil
	}

	return token, nil
}

func (s *FileTokenStore) PutToken(token *oauth2.Token) error {
	content, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if len(s.EncryptionKey) > 0 {
		content, err = s.encrypt(content)
		if err != nil {
			return err
		}
	}

	return os.WriteFile(s.Path, content, 0600)
}

func (s *FileTokenStore) encrypt(plaintext []byte) ([]byte, error) {
	ciphertext, err := encryptAESCTR(s.EncryptionKey, plaintext)
	if err != nil {
		return nil, err
	}
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func (s *FileTokenStore) decrypt(content []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, err
	}
	return decryptAESCTR(s.EncryptionKey, ciphertext)
}

func (s *FileTokenStore) DeleteToken() error {
	err := os.Remove(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LegacyTokenStore writes the access token as the third line of a
// linkedin.config file, after the consumer key and secret.
type LegacyTokenStore struct {
	Path           string
	ConsumerKey    string
	ConsumerSecret string
}

func (s *LegacyTokenStore) GetToken() (*oauth2.Token, error) {
	lines, err := readLines(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(lines) < 3 || lines[2] == "" {
		return nil, nil
	}

	return &oauth2.Token{AccessToken: lines[2], TokenType: "Bearer"}, nil
}

func (s *LegacyTokenStore) PutToken(token *oauth2.Token) error {
	return s.write(token.AccessToken)
}

func (s *LegacyTokenStore) DeleteToken() error {
	return s.write("")
}

func (s *LegacyTokenStore) write(accessToken string) error {
	lines := []string{s.ConsumerKey, s.ConsumerSecret}
	if accessToken != "" {
		lines = append(lines, accessToken)
	}
	return os.WriteFile(s.Path, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0600)
}

// persistingTokenSource reads the session token on every call, so a token
// obtained by a new authorization is picked up at once. Expired tokens are
// refreshed and the result is written back to the store.
type persistingTokenSource struct {
	mu      sync.Mutex
	ctx     context.Context
	session *AuthSession
}

func (ts *persistingTokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	token, err := ts.session.Token()
	if err != nil {
		return nil, err
	}
	if token.Valid() {
		return token, nil
	}
	if token.RefreshToken == "" {
		return nil, WrapError("access token expired", ErrorNoToken)
	}

	refreshed, err := ts.session.client.TokenSource(ts.ctx, token).Token()
	if err != nil {
		return nil, err
	}

	if !sameToken(refreshed, token) {
		err = ts.session.store.PutToken(refreshed)
		if err != nil {
			return nil, WrapError(ErrorStringUnableToStoreToken, err)
		}
		log.Debug("saved new token")
	}

	return refreshed, nil
}

func sameToken(a, b *oauth2.Token) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccessToken == b.AccessToken &&
		a.RefreshToken == b.RefreshToken &&
		a.TokenType == b.TokenType &&
		a.Expiry.Equal(b.Expiry)
}

var _ oauth2.TokenSource = (*persistingTokenSource)(nil)
