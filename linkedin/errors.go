package linkedin

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// Status classifies a failed API response.
type Status int

const (
	StatusOK Status = iota
	StatusExpiredToken
	StatusInvalidAccessToken
	StatusUnauthorizedAction
	StatusOther
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusExpiredToken:
		return "expired token"
	case StatusInvalidAccessToken:
		return "invalid access token"
	case StatusUnauthorizedAction:
		return "unauthorized action"
	default:
		return "error"
	}
}

var (
	ErrInvalidDataFormat = errors.New("invalid data format")
	ErrEmptyComment      = errors.New("comment text is empty")
	ErrNoToken           = errors.New("no access token")
)

// APIError is an error response of the LinkedIn API.
type APIError struct {
	Status     Status
	HTTPStatus int
	ErrorCode  int64
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("linkedin: %s (HTTP %d)", e.Status, e.HTTPStatus)
	}
	return fmt.Sprintf("linkedin: %s (HTTP %d): %s", e.Status, e.HTTPStatus, e.Message)
}

// NeedsReauthorization reports whether err means the access token can no
// longer be used and the user has to authorize again.
func NeedsReauthorization(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case StatusExpiredToken, StatusInvalidAccessToken, StatusUnauthorizedAction:
			return true
		}
		return false
	}

	return isTokenError(err)
}

// isTokenError reports whether err came from obtaining the token rather than
// from the API.
func isTokenError(err error) bool {
	if errors.Is(err, ErrNoToken) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}

func decodeError(statusCode int, body []byte) *APIError {
	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	apiErr := &APIError{
		HTTPStatus: statusCode,
		ErrorCode:  gjson.GetBytes(body, "errorCode").Int(),
		Message:    message,
	}

	switch statusCode {
	case http.StatusUnauthorized:
		if strings.Contains(strings.ToLower(message), "expired") {
			apiErr.Status = StatusExpiredToken
		} else {
			apiErr.Status = StatusInvalidAccessToken
		}
	case http.StatusForbidden:
		apiErr.Status = StatusUnauthorizedAction
	default:
		apiErr.Status = StatusOther
	}

	return apiErr
}
