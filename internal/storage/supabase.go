// Package storage persists uploaded files (payment proofs, day-close
// reports) in a Supabase Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured is returned when upload credentials are absent. Callers
// decide whether that is fatal (payment proofs) or ignorable (reports).
var ErrNotConfigured = errors.New("file storage is not configured")

// SupabaseUploader implements core.FileUploader against the Supabase Storage
// HTTP API.
type SupabaseUploader struct {
	client  *resty.Client
	baseURL string
	bucket  string
}

// NewSupabaseUploader builds an uploader. With empty credentials it still
// constructs, but every Upload returns ErrNotConfigured.
func NewSupabaseUploader(baseURL, apiKey, bucket string) *SupabaseUploader {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey).
			SetHeader("apikey", apiKey)
	}
	return &SupabaseUploader{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
	}
}

// Configured reports whether uploads can work.
func (u *SupabaseUploader) Configured() bool {
	return u.baseURL != "" && u.bucket != ""
}

// Upload stores data under filename and returns the public URL. Filenames are
// prefixed with a timestamp so repeated uploads never collide.
func (u *SupabaseUploader) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if !u.Configured() {
		return "", ErrNotConfigured
	}

	objectPath := fmt.Sprintf("%d-%s", time.Now().UnixNano(), sanitize(filename))

	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, objectPath))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload of %s rejected: %s: %s", filename, resp.Status(), resp.String())
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, objectPath), nil
}

// sanitize keeps object paths URL safe.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, name)
}
