package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is an HTTP error response from an upstream API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

// NewAPIError captures the status and body of a failed response.
func NewAPIError(resp *http.Response) *APIError {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	if err != nil {
		apiErr.Err = fmt.Errorf("error reading response body: %w", err)
	} else {
		apiErr.Err = fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API error: %s - %s", e.Status, e.Body)
	}
	return fmt.Sprintf("API error: %s", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is, or wraps, an APIError with the given
// status code.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}
