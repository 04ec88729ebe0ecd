package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorKind string

const (
	KindDNS         ErrorKind = "dns"
	KindTimeout     ErrorKind = "timeout"
	KindBlocked     ErrorKind = "blocked"
	KindUnreachable ErrorKind = "unreachable"
	KindInvalidURL  ErrorKind = "invalid_url"
	KindLaunch      ErrorKind = "launch"
)

// NavigationError means a page could not be opened. It is a stage failure:
// discovery logs it and moves on.
type NavigationError struct {
	URL  string
	Kind ErrorKind
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

var (
	dnsMarkers = []string{
		"ERR_NAME_NOT_RESOLVED", "ERR_NAME_RESOLUTION_FAILED", "ERR_ADDRESS_UNREACHABLE", "no such host",
	}
	timeoutMarkers = []string{
		"ERR_TIMED_OUT", "ERR_CONNECTION_TIMED_OUT", "Timeout", "timeout", "deadline exceeded",
	}
	blockedMarkers = []string{
		"ERR_BLOCKED_BY_CLIENT", "ERR_BLOCKED_BY_RESPONSE", "ERR_ACCESS_DENIED", "ERR_CERT_",
	}
	blockedTitles = []string{
		"Attention Required", "Just a moment", "Cloudflare", "Access denied", "Access Denied", "DDoS-Guard", "403 Forbidden",
	}
)

// classify maps an engine error to a NavigationError.
func classify(url string, err error) *NavigationError {
	var ne *NavigationError
	if errors.As(err, &ne) {
		return ne
	}

	kind := KindUnreachable
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case containsAny(msg, dnsMarkers):
		kind = KindDNS
	case containsAny(msg, blockedMarkers):
		kind = KindBlocked
	case containsAny(msg, timeoutMarkers):
		kind = KindTimeout
	}
	return &NavigationError{URL: url, Kind: kind, Err: err}
}

// blockedPage detects anti-bot interstitials that load "successfully".
func blockedPage(title string, status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, http.StatusUnavailableForLegalReasons:
		return true
	}
	return containsAny(title, blockedTitles)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
