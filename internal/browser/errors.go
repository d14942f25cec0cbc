// internal/browser/errors.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common engine errors
var (
	ErrBrowserNotFound = errors.New("chrome browser not found")
	ErrBrowserClosed   = errors.New("browser is closed")
	ErrTimeout         = errors.New("navigation timeout")
	ErrDirectDownload  = errors.New("navigation turned into a download")
)

// abortMarker is what Chrome reports when it cancels a navigation because the
// response was handed to the download manager.
const abortMarker = "net::ERR_ABORTED"

// ErrorCode classifies a navigation failure
type ErrorCode string

const (
	// ErrCodeBenignAbort marks a navigation that triggered a direct download.
	// Callers treat it as success.
	ErrCodeBenignAbort ErrorCode = "BENIGN_ABORT"
	ErrCodeTimeout     ErrorCode = "TIMEOUT"
	ErrCodeNavigation  ErrorCode = "NAVIGATION_FAILED"
)

// NavError wraps a navigation failure with its classification
type NavError struct {
	Code       ErrorCode
	URL        string
	Underlying error
}

// Error implements the error interface
func (e *NavError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.URL, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.URL)
}

// Unwrap returns the underlying error
func (e *NavError) Unwrap() error {
	return e.Underlying
}

// Is matches another *NavError by code, otherwise defers to the underlying error
func (e *NavError) Is(target error) bool {
	if t, ok := target.(*NavError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// Benign reports whether the failure should be treated as success
func (e *NavError) Benign() bool {
	return e.Code == ErrCodeBenignAbort
}

// Classify turns a raw navigation error into a *NavError. A nil err returns nil.
func Classify(url string, err error) *NavError {
	if err == nil {
		return nil
	}

	var ne *NavError
	if errors.As(err, &ne) {
		return ne
	}

	code := ErrCodeNavigation
	switch {
	case errors.Is(err, ErrDirectDownload), strings.Contains(err.Error(), abortMarker):
		code = ErrCodeBenignAbort
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		code = ErrCodeTimeout
	}

	return &NavError{Code: code, URL: url, Underlying: err}
}

// IsBenignAbort reports whether err is a navigation that started a download
func IsBenignAbort(err error) bool {
	var ne *NavError
	return errors.As(err, &ne) && ne.Benign()
}
