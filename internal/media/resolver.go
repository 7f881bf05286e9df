// Package media resolves stored product image keys to URLs. Image upload
// and storage belong to the external media host; this package only derives
// fetchable URLs from keys.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"shopfront/internal/config"
)

// Resolver turns a stored image key into a URL the storefront can render.
type Resolver interface {
	ImageURL(ctx context.Context, key string) (string, error)
}

// s3Resolver presigns GET URLs against the media bucket.
type s3Resolver struct {
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
	logger    zerolog.Logger
}

// NewS3Resolver creates a presigning resolver for the media bucket.
func NewS3Resolver(ctx context.Context, cfg config.MediaConfig, logger zerolog.Logger) (Resolver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &s3Resolver{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		expiry:    time.Duration(cfg.URLExpiry) * time.Second,
		logger:    logger.With().Str("component", "media-resolver").Logger(),
	}, nil
}

// ImageURL presigns a GET for the given key.
func (r *s3Resolver) ImageURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.expiry))
	if err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("failed to presign image URL")
		return "", fmt.Errorf("failed to presign image URL: %w", err)
	}

	return req.URL, nil
}

// baseResolver joins keys onto a fixed public base URL. Used when the media
// bucket fronts a public CDN, or as the default when presigning is disabled.
type baseResolver struct {
	base string
}

// NewBaseResolver creates a resolver that prefixes keys with base. An empty
// base yields the key unchanged.
func NewBaseResolver(base string) Resolver {
	return &baseResolver{base: strings.TrimSuffix(base, "/")}
}

// ImageURL joins the key onto the configured base.
func (r *baseResolver) ImageURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if r.base == "" {
		return key, nil
	}
	return r.base + "/" + strings.TrimPrefix(key, "/"), nil
}
