// Package proxyerr centralizes the media proxy's error kinds and
// their HTTP status mapping, the same role the teacher's plain
// errors.New/%w wrapping plays elsewhere in this codebase, but
// collected in one place since the proxy's route layer needs a
// closed set of kinds to dispatch status codes on.
package proxyerr

import (
	"fmt"
	"net/http"
)

// Kind identifies which of the proxy's known failure modes an Error
// represents.
type Kind int

const (
	NotFound Kind = iota
	UpstreamHTTP
	RemoteServerStatus
	TorrentSupportDisabled
	TorrentBackend
	InvalidRequestType
)

var statusByKind = map[Kind]int{
	NotFound:               http.StatusNotFound,
	UpstreamHTTP:           http.StatusBadGateway,
	RemoteServerStatus:     http.StatusBadGateway,
	TorrentSupportDisabled: http.StatusBadRequest,
	TorrentBackend:         http.StatusInternalServerError,
	InvalidRequestType:     http.StatusBadRequest,
}

// Error is the proxy's error type: a Kind plus an optional wrapped
// cause.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code this error maps to.
func (e *Error) Status() int { return statusByKind[e.Kind] }

func NewNotFound() *Error {
	return &Error{Kind: NotFound, msg: "request not found"}
}

func NewUpstreamHTTP(cause error) *Error {
	return &Error{Kind: UpstreamHTTP, msg: "upstream request failed", cause: cause}
}

func NewRemoteServerStatus(status int) *Error {
	return &Error{Kind: RemoteServerStatus, msg: fmt.Sprintf("remote server returned status %d", status)}
}

func NewTorrentSupportDisabled() *Error {
	return &Error{Kind: TorrentSupportDisabled, msg: "torrent support is disabled"}
}

func NewTorrentBackend(cause error) *Error {
	return &Error{Kind: TorrentBackend, msg: "torrent backend error", cause: cause}
}

func NewInvalidRequestType() *Error {
	return &Error{Kind: InvalidRequestType, msg: "invalid request type"}
}

// WriteHTTP writes err to w as a plain-text response with the status
// its Kind maps to, or 500 if err isn't a *Error.
func WriteHTTP(w http.ResponseWriter, err error) {
	var pe *Error
	if e, ok := err.(*Error); ok {
		pe = e
	}
	if pe == nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Error(w, pe.Error(), pe.Status())
}
