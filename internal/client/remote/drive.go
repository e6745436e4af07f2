package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/netx"
	"golang.org/x/oauth2"
)

// DriveStore implements Store over a Drive-style REST API:
//
//	POST {upload}/files?uploadType=multipart        create
//	PUT  {upload}/files/{id}?uploadType=multipart   update
//	GET  {api}/files/{id}                           metadata
//	GET  {downloadUrl}                              content
//
// Requests carry the bearer token of the configured oauth2.TokenSource.
type DriveStore struct {
	apiURL    string
	uploadURL string
	client    *http.Client
}

// NewDriveStore returns a store that authorizes requests with ts.
// A nil ts sends unauthenticated requests.
func NewDriveStore(apiURL, uploadURL string, ts oauth2.TokenSource) *DriveStore {
	client := http.DefaultClient
	if ts != nil {
		client = oauth2.NewClient(context.Background(), ts)
	}
	return NewDriveStoreWithClient(apiURL, uploadURL, client)
}

// NewDriveStoreWithClient is NewDriveStore with a caller-provided HTTP client.
func NewDriveStoreWithClient(apiURL, uploadURL string, client *http.Client) *DriveStore {
	return &DriveStore{
		apiURL:    strings.TrimRight(apiURL, "/"),
		uploadURL: strings.TrimRight(uploadURL, "/"),
		client:    client,
	}
}

type uploadMetadata struct {
	Title    string `json:"title"`
	MimeType string `json:"mimeType"`
}

func (s *DriveStore) Create(ctx context.Context, meta models.Metadata, content string) (*models.Metadata, error) {
	return s.upload(ctx, OpCreate, http.MethodPost, s.uploadURL+"/files?uploadType=multipart", meta, content)
}

func (s *DriveStore) Update(ctx context.Context, id string, meta models.Metadata, content string) (*models.Metadata, error) {
	if id == "" {
		return nil, &Error{Op: OpUpdate, Kind: KindClient, Err: errors.New("empty file id")}
	}
	u := fmt.Sprintf("%s/files/%s?uploadType=multipart", s.uploadURL, url.PathEscape(id))
	return s.upload(ctx, OpUpdate, http.MethodPut, u, meta, content)
}

func (s *DriveStore) upload(ctx context.Context, op Op, method, u string, meta models.Metadata, content string) (*models.Metadata, error) {
	mimeType := meta.MimeType
	if mimeType == "" {
		mimeType = models.ChestMimeType
	}
	mb, err := json.Marshal(uploadMetadata{Title: meta.Title, MimeType: mimeType})
	if err != nil {
		return nil, &Error{Op: op, Kind: KindClient, Err: err}
	}
	body, contentType, err := netx.MultipartRelated(mb, content)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindClient, Err: err}
	}

	resp, err := netx.Do(ctx, s.client, method, u, contentType, body)
	if err != nil {
		return nil, wrapHTTPError(op, err)
	}
	return decodeMetadata(op, resp)
}

func (s *DriveStore) GetMetadata(ctx context.Context, id string) (*models.Metadata, error) {
	if id == "" {
		return nil, &Error{Op: OpGetMetadata, Kind: KindClient, Err: errors.New("empty file id")}
	}
	resp, err := netx.Do(ctx, s.client, http.MethodGet, s.apiURL+"/files/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, wrapHTTPError(OpGetMetadata, err)
	}
	return decodeMetadata(OpGetMetadata, resp)
}

func (s *DriveStore) Download(ctx context.Context, meta *models.Metadata) (string, error) {
	if meta == nil || meta.DownloadURL == "" {
		return "", &Error{Op: OpDownload, Kind: KindClient, Err: errors.New("file has no download url")}
	}
	resp, err := netx.Do(ctx, s.client, http.MethodGet, meta.DownloadURL, "", nil)
	if err != nil {
		return "", wrapHTTPError(OpDownload, err)
	}
	return string(resp), nil
}

func wrapHTTPError(op Op, err error) *Error {
	var se *netx.StatusError
	if errors.As(err, &se) {
		return newError(op, se.StatusCode, err)
	}
	return newError(op, 0, err)
}

func decodeMetadata(op Op, b []byte) (*models.Metadata, error) {
	var m models.Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, &Error{Op: op, Kind: KindServer, Err: fmt.Errorf("bad metadata response: %w", err)}
	}
	if m.ID == "" {
		return nil, &Error{Op: op, Kind: KindServer, Err: errors.New("metadata response has no id")}
	}
	return &m, nil
}
