package remote

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestKindFromStatus(t *testing.T) {
	tests := map[int]Kind{
		0:                              KindNetwork,
		http.StatusUnauthorized:        KindAuth,
		http.StatusForbidden:           KindAuth,
		http.StatusNotFound:            KindNotFound,
		http.StatusConflict:            KindClient,
		http.StatusInternalServerError: KindServer,
		http.StatusServiceUnavailable:  KindServer,
	}
	for code, want := range tests {
		assert.Equal(t, want, KindFromStatus(code), "code %d", code)
	}
}

func TestError_Is(t *testing.T) {
	download := &Error{Op: OpDownload, Kind: KindServer, StatusCode: 500, Err: errors.New("x")}
	assert.ErrorIs(t, download, ErrRemote)
	assert.ErrorIs(t, download, ErrDownload)
	assert.NotErrorIs(t, download, ErrUnauthorized)

	update := &Error{Op: OpUpdate, Kind: KindAuth, Err: errors.New("x")}
	assert.NotErrorIs(t, update, ErrDownload)
	assert.ErrorIs(t, update, ErrUnauthorized)

	inner := errors.New("inner")
	wrapped := &Error{Op: OpCreate, Kind: KindNetwork, Err: inner}
	assert.ErrorIs(t, wrapped, inner)
	assert.Contains(t, wrapped.Error(), "remote create failed (network)")
	assert.Contains(t, download.Error(), "status 500")
}

func TestNewError_Classification(t *testing.T) {
	e := newError(OpCreate, 0, &oauth2.RetrieveError{Response: &http.Response{StatusCode: 400}})
	assert.Equal(t, KindAuth, e.Kind)
	assert.Equal(t, 400, e.StatusCode)

	e = newError(OpCreate, 0, context.DeadlineExceeded)
	assert.Equal(t, KindNetwork, e.Kind)
}
