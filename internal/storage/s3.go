// Package storage reads call recordings from object storage. Size is probed
// with HeadObject before any download so oversized blobs are rejected without
// pulling a byte.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrNotFound is returned when the audio object does not exist.
var ErrNotFound = errors.New("audio object not found")

type BlobStore struct {
	client *s3.Client
	bucket string
}

func New(ctx context.Context, bucket, region string) (*BlobStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &BlobStore{client: s3.NewFromConfig(awsCfg), bucket: bucket}, nil
}

// Size returns the object's byte size without downloading it.
func (b *BlobStore) Size(ctx context.Context, key string) (int64, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("head object %q: %w", key, err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("head object %q: no content length", key)
	}
	return *out.ContentLength, nil
}

// Download fetches the whole object into memory. Callers must size-check
// first via Size.
func (b *BlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// CodecHint derives the gateway audio format from the object key's
// extension, defaulting to mp3.
func CodecHint(key string) string {
	key = strings.ToLower(key)
	switch {
	case strings.HasSuffix(key, ".wav"):
		return "wav"
	case strings.HasSuffix(key, ".m4a"), strings.HasSuffix(key, ".mp4"):
		return "m4a"
	case strings.HasSuffix(key, ".ogg"), strings.HasSuffix(key, ".opus"):
		return "ogg"
	case strings.HasSuffix(key, ".flac"):
		return "flac"
	default:
		return "mp3"
	}
}
