package hub

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrRepositoryNotFound is returned when the hub does not know the repo,
	// or hides it from the caller.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrRevisionNotFound is returned when the branch, tag or commit does not exist.
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrEntryNotFound is returned when the repo exists but the file does not.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrGated is returned when access requires accepting the repo's terms.
	ErrGated = errors.New("gated repository")

	// ErrUnexpectedStatus covers any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrInvalidRequest is returned before any I/O for malformed repo ids,
	// filenames or revisions.
	ErrInvalidRequest = errors.New("invalid request")
)

// StatusError describes a non-2xx hub response.
type StatusError struct {
	URL        string
	StatusCode int
	ErrorCode  string // X-Error-Code header, e.g. "EntryNotFound"
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.ErrorCode != "" {
		msg += " [" + e.ErrorCode + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is matches the sentinel the response was classified as.
func (e *StatusError) Is(target error) bool {
	return e.kind == target
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// newStatusError classifies resp. The X-Error-Code header takes priority
// over the status code because the hub answers 401 for repos that exist but
// are invisible to anonymous callers. Status codes are only mapped to hub
// errors when the failing response came from endpoint itself; a CDN
// answering 403 to an expired signed URL is not a gated repo.
func newStatusError(endpoint *url.URL, rawURL string, resp *http.Response) *StatusError {
	e := &StatusError{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		ErrorCode:  resp.Header.Get("X-Error-Code"),
		Message:    resp.Header.Get("X-Error-Message"),
	}

	if e.Message == "" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.Message = strings.TrimSpace(string(body))
	}

	switch e.ErrorCode {
	case "RepoNotFound":
		e.kind = ErrRepositoryNotFound
	case "RevisionNotFound":
		e.kind = ErrRevisionNotFound
	case "EntryNotFound":
		e.kind = ErrEntryNotFound
	case "GatedRepo":
		e.kind = ErrGated
	}
	if e.kind != nil {
		return e
	}
	if !fromEndpoint(endpoint, resp) {
		e.kind = ErrUnexpectedStatus
		return e
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case http.StatusForbidden:
		e.kind = ErrGated
	case http.StatusNotFound:
		e.kind = ErrEntryNotFound
	default:
		e.kind = ErrUnexpectedStatus
	}
	return e
}

func fromEndpoint(endpoint *url.URL, resp *http.Response) bool {
	if endpoint == nil || resp.Request == nil || resp.Request.URL == nil {
		return true
	}
	return strings.EqualFold(resp.Request.URL.Host, endpoint.Host)
}
