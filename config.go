package linkedgroups

import (
	"bufio"
	"crypto/aes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rayark/linkedgroups/linkedin"
)

const (
	EnvConfigPath   = "LINKEDIN_CONFIG"
	EnvClientID     = "LINKEDIN_CLIENT_ID"
	EnvClientSecret = "LINKEDIN_CLIENT_SECRET"
	EnvRedirectURL  = "LINKEDIN_REDIRECT_URL"
	EnvAccessToken  = "LINKEDIN_ACCESS_TOKEN"
)

const (
	DefaultConfigPath  = "linkedgroups.yaml"
	DefaultLegacyPath  = "linkedin.config"
	DefaultRedirectURL = "http://127.0.0.1:53682/callback"
	DefaultTokenFile   = "linkedgroups-token.json"
	DefaultTimeout     = 5 * time.Minute
	DefaultCacheTTL    = 5 * time.Minute
)

// CookieConfig is a config of github.com/gorilla/securecookie. Recommended
// configurations are base64 of 64 bytes key for SigningKey, and base64 of 32
// bytes key for EncryptionKey. Random keys are used when it is absent.
type CookieConfig struct {
	SigningKey    string `yaml:"signing_key" env:"skey"`
	EncryptionKey string `yaml:"encryption_key" env:"ekey"`
}

// OAuthConfig describes the LinkedIn application.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id" env:"client_id"`
	ClientSecret string   `yaml:"client_secret" env:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url" env:"redirect_url"`
	Scopes       []string `yaml:"scopes" env:"scopes"`
	AuthURL      string   `yaml:"auth_url" env:"auth_url"`
	TokenURL     string   `yaml:"token_url" env:"token_url"`
}

// Config is the configuration of the group browser.
type Config struct {
	OAuthConfig `yaml:",inline"`

	APIURL    string        `yaml:"api_url" env:"api_url"`
	TokenFile string        `yaml:"token_file" env:"token_file"`
	Cookie    *CookieConfig `yaml:"cookie"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	// TokenEncryptionKey is the hex of a 16, 24 or 32 bytes AES key. The
	// token file is stored in clear when it is empty.
	TokenEncryptionKey string `yaml:"token_encryption_key" env:"token_encryption_key"`

	// AccessToken seeds the session when no token has been stored yet.
	AccessToken string `yaml:"access_token" env:"access_token"`

	tokenEncryptionKey []byte

	// legacyPath is set when the configuration came from a linkedin.config
	// file; the token is then written back into it.
	legacyPath string
}

// LoadConfig reads a YAML configuration, or a legacy three-line
// linkedin.config file (consumer key, consumer secret, optional access
// token) when path does not end in .yaml or .yml. Environment variables
// override file values.
func LoadConfig(path string) (*Config, error) {
	var conf *Config
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		conf, err = loadYAMLConfig(path)
	default:
		conf, err = loadLegacyConfig(path)
	}
	if err != nil {
		return nil, WrapError(ErrorStringConfigMissingOrCorrupt, err)
	}

	conf.applyEnv()
	conf.applyDefaults()

	err = conf.Validate()
	if err != nil {
		return nil, WrapError(ErrorStringConfigMissingOrCorrupt, err)
	}

	return conf, nil
}

func loadYAMLConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	conf := &Config{}
	err = yaml.Unmarshal(content, conf)
	if err != nil {
		return nil, err
	}

	return conf, nil
}

func loadLegacyConfig(path string) (*Config, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return nil, ErrorInvalidConfig
	}

	conf := &Config{
		OAuthConfig: OAuthConfig{
			ClientID:     lines[0],
			ClientSecret: lines[1],
		},
		legacyPath: path,
	}
	if len(lines) == 3 {
		conf.AccessToken = lines[2]
	}

	return conf, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}

	return lines, scanner.Err()
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvClientID); ok && v != "" {
		c.ClientID = v
	}
	if v, ok := os.LookupEnv(EnvClientSecret); ok && v != "" {
		c.ClientSecret = v
	}
	if v, ok := os.LookupEnv(EnvRedirectURL); ok && v != "" {
		c.RedirectURL = v
	}
	if v, ok := os.LookupEnv(EnvAccessToken); ok && v != "" {
		c.AccessToken = v
	}
}

func (c *Config) applyDefaults() {
	if c.RedirectURL == "" {
		c.RedirectURL = DefaultRedirectURL
	}
	c.Scopes = uniqueStrings(c.Scopes)
	if len(c.Scopes) == 0 {
		c.Scopes = linkedin.Scopes(linkedin.DefaultPermissions)
	}
	if c.AuthURL == "" {
		c.AuthURL = linkedin.Authorization
	}
	if c.TokenURL == "" {
		c.TokenURL = linkedin.Exchange
	}
	if c.APIURL == "" {
		c.APIURL = linkedin.Base
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

// Validate checks the fields without which no authorization can happen.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrorMissingCredentials
	}

	if c.TokenEncryptionKey != "" {
		key, err := hex.DecodeString(c.TokenEncryptionKey)
		if err != nil {
			return WrapError("token_encryption_key", err)
		}
		_, err = aes.NewCipher(key)
		if err != nil {
			return WrapError("token_encryption_key", err)
		}
		c.tokenEncryptionKey = key
	}

	return nil
}

// IsLegacy reports whether the configuration was read from a linkedin.config
// file.
func (c *Config) IsLegacy() bool {
	return c.legacyPath != ""
}

// TokenStore returns where the session keeps its token: the legacy file when
// the configuration came from one, the JSON token file otherwise.
func (c *Config) TokenStore() TokenStore {
	if c.IsLegacy() {
		return &LegacyTokenStore{
			Path:           c.legacyPath,
			ConsumerKey:    c.ClientID,
			ConsumerSecret: c.ClientSecret,
		}
	}
	return &FileTokenStore{Path: c.TokenFile, EncryptionKey: c.tokenEncryptionKey}
}
