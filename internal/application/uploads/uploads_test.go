package uploads

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	f.key, f.contentType, f.data = key, contentType, data
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStore) SignedUploadURL(ctx context.Context, key string) (string, string, error) {
	f.key = key
	if f.err != nil {
		return "", "", f.err
	}
	return "https://upload.example.com/" + key + "?token=t", "https://cdn.example.com/" + key, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.err }

func pngDataURL(n int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, n))
}

func TestDecodeDataURL(t *testing.T) {
	ct, data, err := DecodeDataURL(pngDataURL(10))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Len(t, data, 10)

	_, _, err = DecodeDataURL("https://example.com/a.png")
	assert.Equal(t, ErrInvalidDataURL, err)
	_, _, err = DecodeDataURL("data:image/png,plain")
	assert.Equal(t, ErrInvalidDataURL, err)
	_, _, err = DecodeDataURL("data:image/png;base64,***")
	assert.Equal(t, ErrInvalidDataURL, err)
	_, _, err = DecodeDataURL("data:application/pdf;base64,AAAA")
	assert.Equal(t, ErrNotAnImage, err)
}

func TestDecodeDataURL_SizeCap(t *testing.T) {
	_, data, err := DecodeDataURL(pngDataURL(MaxImageBytes))
	require.NoError(t, err)
	assert.Len(t, data, MaxImageBytes)

	_, _, err = DecodeDataURL(pngDataURL(MaxImageBytes + 1))
	assert.Equal(t, ErrImageTooLarge, err)
}

func TestSaveListingImage_Store(t *testing.T) {
	store := &fakeStore{}
	s := &Service{Store: store}
	user := uuid.New()

	url, err := s.SaveListingImage(context.Background(), user, pngDataURL(4))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(store.key, user.String()+"/"))
	assert.True(t, strings.HasSuffix(store.key, ".png"))
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, "https://cdn.example.com/"+store.key, url)

	store.err = errors.New("down")
	_, err = s.SaveListingImage(context.Background(), user, pngDataURL(4))
	assert.Error(t, err)
}

func TestSaveListingImage_InlineWithoutStore(t *testing.T) {
	s := &Service{}
	in := pngDataURL(4)
	url, err := s.SaveListingImage(context.Background(), uuid.New(), in)
	require.NoError(t, err)
	assert.Equal(t, in, url)

	_, err = s.SaveListingImage(context.Background(), uuid.New(), "not-an-image")
	assert.Equal(t, ErrInvalidDataURL, err)
}

func TestListingImageUploadURL(t *testing.T) {
	store := &fakeStore{}
	s := &Service{Store: store}
	user := uuid.New()

	res, err := s.ListingImageUploadURL(context.Background(), user, "../My Photo (1).jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Path, "-My-Photo-1-.jpg"))
	assert.True(t, strings.HasPrefix(res.Path, user.String()+"/"))
	assert.Contains(t, res.UploadURL, "token=t")

	_, err = s.ListingImageUploadURL(context.Background(), user, "  ")
	assert.Equal(t, ErrFileNameRequired, err)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "photo.jpg", SanitizeFileName("photo.jpg"))
	assert.Equal(t, "passwd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "a-b.png", SanitizeFileName("a b.png"))
	assert.Equal(t, "", SanitizeFileName(""))
}

func TestSupabaseStore(t *testing.T) {
	var putPath, putType, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch {
		case strings.HasPrefix(r.URL.Path, "/storage/v1/object/upload/sign/"):
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "/object/upload/sign/listing-images/k.png?token=abc"})
		case strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
			putPath, putType = r.URL.Path, r.Header.Get("Content-Type")
			_, _ = io.Copy(io.Discard, r.Body)
			_, _ = w.Write([]byte(`{"Key":"listing-images/k.png"}`))
		case r.URL.Path == "/storage/v1/bucket/listing-images":
			_, _ = w.Write([]byte(`{"id":"listing-images"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := &SupabaseStore{BaseURL: srv.URL + "/", SecretKey: "service-key", Bucket: "listing-images"}
	url, err := s.Put(context.Background(), "u/k.png", "image/png", []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/listing-images/u/k.png", putPath)
	assert.Equal(t, "image/png", putType)
	assert.Equal(t, "Bearer service-key", auth)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/listing-images/u/k.png", url)

	up, pub, err := s.SignedUploadURL(context.Background(), "k.png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/upload/sign/listing-images/k.png?token=abc", up)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/listing-images/k.png", pub)

	require.NoError(t, s.Ping(context.Background()))
}

func TestSupabaseStore_Misconfigured(t *testing.T) {
	s := &SupabaseStore{Bucket: "b"}
	_, err := s.Put(context.Background(), "k", "image/png", nil)
	assert.Error(t, err)
}

func TestSupabaseStore_AnonKeyHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Invalid Compact JWS"}`))
	}))
	defer srv.Close()
	s := &SupabaseStore{BaseURL: srv.URL, SecretKey: "anon", Bucket: "b"}
	_, _, err := s.SignedUploadURL(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_role")
}
