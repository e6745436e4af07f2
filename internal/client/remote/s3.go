package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/netx"
	"github.com/google/uuid"
)

const titleMetadataKey = "title"

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config describes the bucket that holds chests.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Store implements Store on an S3-compatible bucket. The object key is the
// file id; the title travels in object metadata.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	newKey func() string
}

// NewS3Store builds an S3 client for cfg. Static credentials are used when
// AccessKey is set, otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, newKey: uuid.NewString}
}

func (s *S3Store) Create(ctx context.Context, meta models.Metadata, content string) (*models.Metadata, error) {
	id := s.prefix + s.newKey()
	return s.put(ctx, OpCreate, id, meta, content)
}

func (s *S3Store) Update(ctx context.Context, id string, meta models.Metadata, content string) (*models.Metadata, error) {
	if id == "" {
		return nil, &Error{Op: OpUpdate, Kind: KindClient, Err: errors.New("empty file id")}
	}
	if _, err := s.head(ctx, OpUpdate, id); err != nil {
		return nil, err
	}
	return s.put(ctx, OpUpdate, id, meta, content)
}

func (s *S3Store) put(ctx context.Context, op Op, id string, meta models.Metadata, content string) (*models.Metadata, error) {
	mimeType := meta.MimeType
	if mimeType == "" {
		mimeType = models.ChestMimeType
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(id),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String(mimeType),
		Metadata:    map[string]string{titleMetadataKey: meta.Title},
	})
	if err != nil {
		return nil, s3Error(op, err)
	}
	return &models.Metadata{
		ID:           id,
		Title:        meta.Title,
		MimeType:     mimeType,
		DownloadURL:  s.objectURL(id),
		ModifiedTime: time.Now().UTC(),
	}, nil
}

func (s *S3Store) GetMetadata(ctx context.Context, id string) (*models.Metadata, error) {
	if id == "" {
		return nil, &Error{Op: OpGetMetadata, Kind: KindClient, Err: errors.New("empty file id")}
	}
	return s.head(ctx, OpGetMetadata, id)
}

func (s *S3Store) head(ctx context.Context, op Op, id string) (*models.Metadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, s3Error(op, err)
	}
	m := &models.Metadata{
		ID:          id,
		Title:       out.Metadata[titleMetadataKey],
		MimeType:    aws.ToString(out.ContentType),
		DownloadURL: s.objectURL(id),
	}
	if out.LastModified != nil {
		m.ModifiedTime = out.LastModified.UTC()
	}
	return m, nil
}

func (s *S3Store) Download(ctx context.Context, meta *models.Metadata) (string, error) {
	if meta == nil || meta.ID == "" {
		return "", &Error{Op: OpDownload, Kind: KindClient, Err: errors.New("empty file id")}
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(meta.ID),
	})
	if err != nil {
		return "", s3Error(OpDownload, err)
	}
	defer out.Body.Close()

	b, err := netx.ReadLimited(out.Body)
	if err != nil {
		return "", newError(OpDownload, 0, err)
	}
	return string(b), nil
}

func (s *S3Store) objectURL(id string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, id)
}

func s3Error(op Op, err error) *Error {
	code := 0
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		code = re.HTTPStatusCode()
	}

	e := newError(op, code, err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			e.Kind = KindNotFound
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			e.Kind = KindAuth
		default:
			if code == 0 {
				if apiErr.ErrorFault() == smithy.FaultServer {
					e.Kind = KindServer
				} else {
					e.Kind = KindClient
				}
			}
		}
	}
	return e
}
