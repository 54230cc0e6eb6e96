package uploads

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MaxImageBytes caps decoded listing images.
const MaxImageBytes = 5 << 20

var (
	ErrInvalidDataURL = errors.New("Image must be a base64 data URL")
	ErrImageTooLarge  = errors.New("Image must be 5MB or smaller")
	ErrNotAnImage     = errors.New("Only image files are allowed")
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DecodeDataURL decodes "data:image/<type>;base64,<payload>".
func DecodeDataURL(s string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	contentType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	contentType = strings.ToLower(contentType)
	if _, ok := imageExt[contentType]; !ok {
		return "", nil, ErrNotAnImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return "", nil, ErrImageTooLarge
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidDataURL
	}
	if len(data) > MaxImageBytes {
		return "", nil, ErrImageTooLarge
	}
	return contentType, data, nil
}

// Extension returns the file extension for an image content type.
func Extension(contentType string) string {
	return imageExt[strings.ToLower(contentType)]
}
