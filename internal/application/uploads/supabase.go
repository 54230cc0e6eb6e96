package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseStore is a BlobStore backed by the Supabase Storage HTTP API.
type SupabaseStore struct {
	BaseURL   string
	SecretKey string
	Bucket    string
	Client    *http.Client
}

type supabaseSignedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign
}

func (s *SupabaseStore) base() (string, error) {
	if s.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if s.SecretKey == "" {
		return "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	if s.Client == nil {
		s.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return strings.TrimRight(s.BaseURL, "/"), nil
}

func (s *SupabaseStore) do(req *http.Request) ([]byte, error) {
	// service_role key goes in both headers
	req.Header.Set("apikey", s.SecretKey)
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(body)
		if (resp.StatusCode == 400 || resp.StatusCode == 403) &&
			(strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized")) {
			return nil, fmt.Errorf("supabase storage requires the service_role key, not the anon key (body: %s)", bodyStr)
		}
		return nil, fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}
	return body, nil
}

// PublicURL is the public object URL for key.
func (s *SupabaseStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(s.BaseURL, "/"), s.Bucket, key)
}

func (s *SupabaseStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	base, err := s.base()
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, s.Bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	if _, err := s.do(req); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *SupabaseStore) SignedUploadURL(ctx context.Context, key string) (string, string, error) {
	base, err := s.base()
	if err != nil {
		return "", "", err
	}
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, s.Bucket, key)
	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"expiresIn": int(SignedURLTTL.Seconds()),
		"upsert":    false,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	respBody, err := s.do(req)
	if err != nil {
		return "", "", err
	}

	var data supabaseSignedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", "", fmt.Errorf("supabase response decode: %w", err)
	}
	switch {
	case data.SignedURL != "":
		return data.SignedURL, s.PublicURL(key), nil
	case data.SignedURLSnake != "":
		return data.SignedURLSnake, s.PublicURL(key), nil
	case data.URL != "":
		u := data.URL
		if u[0] != '/' {
			u = "/" + u
		}
		return base + "/storage/v1" + strings.TrimPrefix(u, "/storage/v1"), s.PublicURL(key), nil
	}
	return "", "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}

func (s *SupabaseStore) Ping(ctx context.Context) error {
	base, err := s.base()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/storage/v1/bucket/%s", base, s.Bucket), nil)
	if err != nil {
		return err
	}
	_, err = s.do(req)
	return err
}
