package s3

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
)

type URLMode string

const (
	URLModePresigned URLMode = "presigned"
	URLModePublic    URLMode = "public"
)

const defaultPresignedTTL = 15 * time.Minute

// PutObjectAPI is the subset of the S3 client used by ResultArchive.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner issues presigned GET URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	URLMode      URLMode
	PresignedTTL time.Duration
}

// ResultArchive stores gzip-compressed cycle documents in S3.
type ResultArchive struct {
	client       PutObjectAPI
	presign      Presigner
	bucket       string
	base         *url.URL
	usePathStyle bool
	urlMode      URLMode
	presignedTTL time.Duration
}

var _ port.ResultArchive = (*ResultArchive)(nil)

func NewResultArchiveFromConfig(awsCfg aws.Config, cfg Config) (*ResultArchive, error) {
	awsCfg = awsCfg.Copy()
	if region := strings.TrimSpace(cfg.Region); region != "" {
		awsCfg.Region = region
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	} else {
		cfg.Endpoint = "https://s3." + awsCfg.Region + ".amazonaws.com"
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewResultArchive(client, s3.NewPresignClient(client), cfg)
}

func NewResultArchive(client PutObjectAPI, presign Presigner, cfg Config) (*ResultArchive, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	switch cfg.URLMode {
	case "":
		cfg.URLMode = URLModePresigned
	case URLModePresigned, URLModePublic:
	default:
		return nil, fmt.Errorf("unsupported s3 url mode: %s", cfg.URLMode)
	}
	if cfg.PresignedTTL <= 0 {
		cfg.PresignedTTL = defaultPresignedTTL
	}

	var base *url.URL
	if cfg.URLMode == URLModePublic {
		parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"))
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("public url mode needs an absolute endpoint, got %q", cfg.Endpoint)
		}
		base = parsed
	}

	return &ResultArchive{
		client:       client,
		presign:      presign,
		bucket:       bucket,
		base:         base,
		usePathStyle: cfg.UsePathStyle,
		urlMode:      cfg.URLMode,
		presignedTTL: cfg.PresignedTTL,
	}, nil
}

// Archive uploads the document and returns a presigned or public URL for it.
func (a *ResultArchive) Archive(ctx context.Context, cycle port.ArchivedCycle) (string, error) {
	key := strings.TrimLeft(strings.TrimSpace(cycle.Key), "/")
	if key == "" {
		return "", fmt.Errorf("archive key is required")
	}

	body, err := compress(cycle.Document)
	if err != nil {
		return "", fmt.Errorf("compress cycle %s: %w", cycle.CycleID, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(a.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ContentEncoding:      aws.String("gzip"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"cycle-id":     cycle.CycleID,
			"cycle-status": cycle.Status,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}

	if a.urlMode == URLModePublic {
		return a.publicURL(key), nil
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.presignedTTL))
	if err != nil {
		return "", fmt.Errorf("presign s3://%s/%s: %w", a.bucket, key, err)
	}
	return req.URL, nil
}

func (a *ResultArchive) publicURL(key string) string {
	u := *a.base
	if a.usePathStyle {
		u.Path = u.Path + "/" + a.bucket + "/" + key
	} else {
		u.Host = a.bucket + "." + u.Host
		u.Path = u.Path + "/" + key
	}
	return u.String()
}

func compress(document []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(document); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
