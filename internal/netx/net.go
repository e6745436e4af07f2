// Package netx holds small HTTP helpers shared by remote store clients.
package netx

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// MaxBodySize bounds how much of a response body is read.
const MaxBodySize = 32 << 20

// maxErrorBody bounds the body kept in a StatusError.
const maxErrorBody = 4 << 10

// ErrBodyTooLarge is returned when a body exceeds MaxBodySize. The body is
// never silently truncated.
var ErrBodyTooLarge = errors.New("response body too large")

// ReadLimited reads r to the end and fails with ErrBodyTooLarge when it
// holds more than MaxBodySize bytes.
func ReadLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, MaxBodySize)
	}
	return b, nil
}

// StatusError is returned by Do for responses outside the 2xx range.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed: %s", e.Status)
	}
	return fmt.Sprintf("request failed: %s; body: %s", e.Status, e.Body)
}

// Do sends a request and returns the whole response body.
//
// Non-2xx responses are reported as *StatusError carrying the start of the
// body. A 2xx body larger than MaxBodySize fails with ErrBodyTooLarge.
func Do(ctx context.Context, client *http.Client, method, url, contentType string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}

	b, err := ReadLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	return b, nil
}

// MultipartRelated builds a two-part multipart/related body: a JSON
// metadata part followed by content, base64 encoded, declared with
// Content-Transfer-Encoding: base64. It returns the body and the
// Content-Type header value carrying the boundary.
func MultipartRelated(metadata []byte, content string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(metadata); err != nil {
		return nil, "", err
	}

	dataHeader := textproto.MIMEHeader{}
	dataHeader.Set("Content-Type", "application/json")
	dataHeader.Set("Content-Transfer-Encoding", "base64")
	part, err = mw.CreatePart(dataHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(part, base64.StdEncoding.EncodeToString([]byte(content))); err != nil {
		return nil, "", err
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/related; boundary=" + mw.Boundary(), nil
}

// ParseMultipartRelated is the inverse of MultipartRelated.
func ParseMultipartRelated(contentType string, body []byte) (metadata []byte, content string, err error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, "", err
	}
	if mediaType != "multipart/related" || params["boundary"] == "" {
		return nil, "", fmt.Errorf("unexpected content type %q", contentType)
	}

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var parts [][]byte
	var encodings []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", err
		}
		b, err := io.ReadAll(p)
		if err != nil {
			return nil, "", err
		}
		parts = append(parts, b)
		encodings = append(encodings, p.Header.Get("Content-Transfer-Encoding"))
	}
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("expected 2 parts, got %d", len(parts))
	}

	data := parts[1]
	if strings.EqualFold(encodings[1], "base64") {
		data, err = base64.StdEncoding.DecodeString(string(parts[1]))
		if err != nil {
			return nil, "", fmt.Errorf("bad base64 part: %w", err)
		}
	}
	return parts[0], string(data), nil
}
