package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrTransportFailed  = errors.New("transport failed")
)

// unknownErrorCode is used when a non-2xx response body cannot be parsed into
// a structured API error.
const unknownErrorCode = "unknown_error"

// APIError is a structured error returned by the provider's APIs: a non-2xx
// status with a JSON body carrying an error code and description.
type APIError struct {
	// StatusCode of the HTTP response.
	StatusCode int

	// Code identifying the error, e.g. "invalid_grant".
	Code string

	// Description is a human readable description of the error. Meant for
	// debugging, not for display.
	Description string

	// Values holds any additional fields from the error response body.
	Values map[string]interface{}

	// nonce carried in the response headers, for the proof-of-possession
	// nonce-required handshake
	nonce string
}

// asAPIError reports whether err is (or wraps) an *APIError, assigning it to
// target when so.
func asAPIError(err error, target **APIError) bool {
	return errors.As(err, target)
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Description)
}

// IsUnauthorized reports whether the response was a plain 401. Providers
// answer 401 Unauthorized to a PKCE token exchange when the application is
// not configured for PKCE.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// newAPIError builds an APIError from a non-2xx response body. Bodies that do
// not parse as JSON produce an error with the unknown error code and the raw
// body as description.
func newAPIError(statusCode int, body []byte) *APIError {
	values := map[string]interface{}{}
	if err := json.Unmarshal(body, &values); err != nil || len(values) == 0 {
		description := strings.TrimSpace(string(body))
		if description == "" {
			description = http.StatusText(statusCode)
		}
		return &APIError{
			StatusCode:  statusCode,
			Code:        unknownErrorCode,
			Description: description,
		}
	}
	apiErr := &APIError{
		StatusCode: statusCode,
		Code:       unknownErrorCode,
		Values:     values,
	}
	// OAuth2 endpoints use error/error_description; other management-style
	// endpoints use code/description
	if s, ok := values["error"].(string); ok {
		apiErr.Code = s
	} else if s, ok := values["code"].(string); ok {
		apiErr.Code = s
	}
	if s, ok := values["error_description"].(string); ok {
		apiErr.Description = s
	} else if s, ok := values["description"].(string); ok {
		apiErr.Description = s
	} else {
		apiErr.Description = http.StatusText(statusCode)
	}
	return apiErr
}
