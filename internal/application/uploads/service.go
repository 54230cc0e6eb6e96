package uploads

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileNameRequired = errors.New("file_name is required")
	ErrNoStore          = errors.New("Image uploads are not configured")
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadResult is returned for direct client uploads.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// Service stores listing images. With no Store configured, images stay
// inline as their data URL.
type Service struct {
	Store BlobStore
}

// SaveListingImage validates a data URL image and returns the URL to keep on
// the listing.
func (s *Service) SaveListingImage(ctx context.Context, userID uuid.UUID, dataURL string) (string, error) {
	contentType, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	if s.Store == nil {
		return strings.TrimSpace(dataURL), nil
	}
	key := fmt.Sprintf("%s/%d-%s%s", userID, time.Now().UnixMilli(), uuid.NewString()[:8], Extension(contentType))
	return s.Store.Put(ctx, key, contentType, data)
}

// ListingImageUploadURL returns a signed URL for uploading fileName directly.
func (s *Service) ListingImageUploadURL(ctx context.Context, userID uuid.UUID, fileName string) (*UploadResult, error) {
	name := SanitizeFileName(fileName)
	if name == "" {
		return nil, ErrFileNameRequired
	}
	if s.Store == nil {
		return nil, ErrNoStore
	}
	key := fmt.Sprintf("%s/%d-%s", userID, time.Now().UnixMilli(), name)
	uploadURL, publicURL, err := s.Store.SignedUploadURL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &UploadResult{UploadURL: uploadURL, PublicURL: publicURL, Path: key}, nil
}

// SanitizeFileName keeps the base name and replaces anything unusual with "-".
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
}
