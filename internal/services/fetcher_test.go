package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logo.png":
			w.Header().Set("Content-Type", "image/png; charset=binary")
			w.Write(pngHeader)
		case "/untyped.png":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(pngHeader)
		case "/big.png":
			w.Write(make([]byte, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewImageFetcher(nil)
	ctx := context.Background()

	img, err := f.Fetch(ctx, srv.URL+"/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, pngHeader, img.Data)

	img, err = f.Fetch(ctx, srv.URL+"/untyped.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	_, err = f.Fetch(ctx, srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")

	f.MaxBytes = 16
	_, err = f.Fetch(ctx, srv.URL+"/big.png")
	assert.ErrorContains(t, err, "exceeds")
}

func TestImageFetcher_DataURL(t *testing.T) {
	f := NewImageFetcher(nil)

	img, err := f.Fetch(context.Background(), "data:image/webp;base64,YWJj")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.MIMEType)
	assert.Equal(t, []byte("abc"), img.Data)

	_, err = f.Fetch(context.Background(), "data:image/png;base64")
	assert.Error(t, err)
}

func TestImageFetcher_StoreURLs(t *testing.T) {
	store := newMemStore()
	url := store.put("current.png", "current")

	img, err := NewImageFetcher(store).Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "current", string(img.Data))

	_, err = NewImageFetcher(store).Fetch(context.Background(), "ftp://nowhere/x.png")
	assert.Error(t, err)
}
