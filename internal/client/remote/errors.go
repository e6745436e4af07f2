package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophchest/internal/netx"
	"golang.org/x/oauth2"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrRemote       = errors.New("remote store error")
	ErrDownload     = errors.New("download error")
	ErrUnauthorized = errors.New("remote store unauthorized")
	ErrNotFound     = errors.New("remote file not found")
)

// Op names the remote call that failed.
type Op string

const (
	OpCreate      Op = "create"
	OpGetMetadata Op = "metadata"
	OpDownload    Op = "download"
	OpUpdate      Op = "update"
)

// Kind classifies a failure.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindAuth     Kind = "auth"
	KindNotFound Kind = "notFound"
	KindClient   Kind = "client"
	KindServer   Kind = "server"
)

// Error is returned by every Store implementation.
// StatusCode is zero when no response was received.
type Error struct {
	Op         Op
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s failed (%s, status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrRemote for every error, ErrDownload for failures on the
// fetch path (metadata or content), ErrUnauthorized for auth failures and
// ErrNotFound for missing files.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrDownload:
		return e.Op == OpDownload || e.Op == OpGetMetadata
	case ErrUnauthorized:
		return e.Kind == KindAuth
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// KindFromStatus maps an HTTP status code to a Kind.
func KindFromStatus(code int) Kind {
	switch {
	case code == 0:
		return KindNetwork
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusNotFound:
		return KindNotFound
	case code >= 500:
		return KindServer
	case code >= 400:
		return KindClient
	}
	return KindServer
}

func newError(op Op, code int, err error) *Error {
	kind := KindFromStatus(code)
	var re *oauth2.RetrieveError
	if code == 0 && errors.As(err, &re) {
		kind = KindAuth
		if re.Response != nil {
			code = re.Response.StatusCode
		}
	}
	if errors.Is(err, netx.ErrBodyTooLarge) {
		kind = KindServer
	}
	if code == 0 && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		kind = KindNetwork
	}
	return &Error{Op: op, Kind: kind, StatusCode: code, Err: err}
}
