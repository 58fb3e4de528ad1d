package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxReferenceImageBytes = 20 << 20

// ImageFetcher turns an input image URL into bytes. It understands data:
// URLs, URLs produced by the image store, and plain http(s) URLs.
type ImageFetcher struct {
	Store      ImageStore
	HTTPClient *http.Client
	MaxBytes   int64
}

func NewImageFetcher(store ImageStore) *ImageFetcher {
	return &ImageFetcher{
		Store:      store,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		MaxBytes:   maxReferenceImageBytes,
	}
}

func (f *ImageFetcher) Fetch(ctx context.Context, url string) (*Image, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}
	if f.Store != nil {
		if key, ok := f.Store.KeyForURL(url); ok {
			return f.Store.Load(ctx, key)
		}
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("unsupported image url %q", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: status %d", url, resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = maxReferenceImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image %s exceeds %d bytes", url, limit)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	return &Image{Data: data, MIMEType: mime}, nil
}

func decodeDataURL(url string) (*Image, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url")
	}
	mime := "image/png"
	if m, _, _ := strings.Cut(header, ";"); m != "" {
		mime = m
	}
	if !strings.HasSuffix(header, ";base64") {
		return &Image{Data: []byte(payload), MIMEType: mime}, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return &Image{Data: data, MIMEType: mime}, nil
}
