package linkedgroups

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rayark/linkedgroups/linkedin"
)

var (
	ErrorInvalidAuthorizationLink = errors.New("invalid authorization link")   // NewAuthorizationRequest()
	ErrorMissingRedirectURI       = errors.New("missing redirect_uri")         // NewAuthorizationRequest()
	ErrorNoPendingAuthorization   = errors.New("no pending authorization")     // CallbackServer
	ErrorAuthorizationCancelled   = errors.New("authorization cancelled")      // Authorize()
	ErrorNoToken                  = linkedin.ErrNoToken                        // AuthSession
	ErrorInvalidConfig            = errors.New("invalid configuration")        // LoadConfig()
	ErrorMissingCredentials       = errors.New("missing client credentials")   // LoadConfig()
	ErrorInvalidRedirectURL       = errors.New("redirect URL is not loopback") // NewCallbackServer()
)

const (
	ErrorStringFailedToExchangeAuthorizationCode = "failed to exchange authorization code"
	ErrorStringConfigMissingOrCorrupt            = "configuration file is missing or corrupt"
	ErrorStringUnableToStoreToken                = "unable to store token"
	ErrorStringUnableToStartListener             = "unable to start callback listener"
	ErrorStringUnableToOpenBrowser               = "unable to open browser"
	ErrorStringInvalidState                      = "invalid state"
	ErrorStringAuthorizationDenied               = "authorization denied"
)

// WrapError prefixes err with msg, keeping err reachable through errors.Is.
// A nil err stays nil.
func WrapError(msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// CompareErrorMessage reports whether err was wrapped with msg by WrapError.
func CompareErrorMessage(err error, msg string) bool {
	if err == nil {
		return false
	}
	prefix, _, _ := strings.Cut(err.Error(), ": ")
	return prefix == msg
}

// DeniedError reports an authorization the user or the provider refused.
type DeniedError struct {
	Code        string
	Description string
}

func (e *DeniedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %s", ErrorStringAuthorizationDenied, e.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrorStringAuthorizationDenied, e.Code, e.Description)
}
