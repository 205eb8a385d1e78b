package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// PhotoClient downloads profile photos for inline query thumbnails
type PhotoClient struct {
	http *resty.Client
}

func NewPhotoClient() *PhotoClient {
	return &PhotoClient{
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(300 * time.Millisecond),
	}
}

// Fetch returns the image body and its content type. Only http(s) URLs are fetched.
func (c *PhotoClient) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("unsupported photo url %q", rawURL)
	}
	resp, err := c.http.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch photo: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("photo host returned %d", resp.StatusCode())
	}
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(resp.Body())
	}
	return resp.Body(), contentType, nil
}
