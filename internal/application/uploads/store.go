// Package uploads stores listing images in a blob store and hands out signed
// URLs for direct client uploads.
package uploads

import (
	"context"
	"time"
)

// SignedURLTTL is how long a direct-upload URL stays valid.
const SignedURLTTL = time.Hour

// BlobStore is where listing images live.
type BlobStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// SignedUploadURL returns a URL the client may upload key to, and the
	// public URL the object will have once uploaded.
	SignedUploadURL(ctx context.Context, key string) (uploadURL, publicURL string, err error)
	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}
