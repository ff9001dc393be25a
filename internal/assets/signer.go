// Package assets issues time-limited download URLs for 3D model files kept
// in an S3-compatible bucket.
package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
)

const (
	defaultRegion = "us-east-1"
	defaultExpiry = 15 * time.Minute
	maxExpiry     = 7 * 24 * time.Hour
)

// Presigner is the subset of *s3.PresignClient used here.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Signer attaches presigned GET URLs to model references.
type Signer struct {
	presigner Presigner
	bucket    string
	expiry    time.Duration
	logger    *logrus.Logger
}

// New builds a Signer from static keys when configured, otherwise from the
// default AWS credential chain. Endpoint and PathStyle allow S3-compatible
// stores such as MinIO.
func New(ctx context.Context, cfg domain.AssetsConfig, logger *logrus.Logger) (*Signer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("assets bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewSigner(s3.NewPresignClient(client), cfg.Bucket, cfg.URLExpiry, logger), nil
}

// NewSigner wraps an existing presigner. Expiry is clamped to what SigV4
// accepts; zero selects fifteen minutes.
func NewSigner(presigner Presigner, bucket string, expiry time.Duration, logger *logrus.Logger) *Signer {
	switch {
	case expiry <= 0:
		expiry = defaultExpiry
	case expiry > maxExpiry:
		expiry = maxExpiry
	}
	return &Signer{presigner: presigner, bucket: bucket, expiry: expiry, logger: logger}
}

// ObjectKey maps a model path onto its bucket key.
func ObjectKey(path string) string {
	return strings.TrimLeft(path, "/")
}

// URL presigns a GET for one model path.
func (s *Signer) URL(ctx context.Context, path string) (string, error) {
	key := ObjectKey(path)
	if key == "" {
		return "", domain.NewValidationError("path", "model path is empty", path)
	}
	req, err := s.presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		func(o *s3.PresignOptions) { o.Expires = s.expiry })
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Sign returns copies of models with URL filled in. A model that cannot be
// signed is returned without a URL; the failure is logged.
func (s *Signer) Sign(ctx context.Context, models []domain.ModelReference) []domain.ModelReference {
	if len(models) == 0 {
		return nil
	}
	out := make([]domain.ModelReference, len(models))
	for i, m := range models {
		out[i] = m
		url, err := s.URL(ctx, m.Path)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"model": m.Name,
				"path":  m.Path,
				"error": err.Error(),
			}).Warn("Model URL not signed")
			continue
		}
		out[i].URL = url
	}
	return out
}

// Expiry is the lifetime given to issued URLs.
func (s *Signer) Expiry() time.Duration { return s.expiry }
