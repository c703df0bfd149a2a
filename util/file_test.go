package util

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nhttp "github.com/chaos-io/yeezyframe/util/http"
)

func writePNG(t *testing.T, path string) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	require.NoError(t, png.Encode(f, img))
}

func TestReadFile_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shoe.png")
	writePNG(t, path)

	f, err := ReadFile(context.Background(), nhttp.NewHTTPClient(), path)
	require.NoError(t, err)
	assert.Equal(t, "shoe.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.NotEmpty(t, f.Data)
}

func TestReadFile_Remote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("not really a jpeg"))
	}))
	defer server.Close()

	f, err := ReadFile(context.Background(), nhttp.NewHTTPClient(), server.URL+"/photos/me.jpg")
	require.NoError(t, err)
	assert.Equal(t, "me.jpg", f.Name)
	assert.Equal(t, "image/jpeg", f.ContentType)
	assert.Equal(t, "not really a jpeg", string(f.Data))
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), nhttp.NewHTTPClient(), filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestBytesMD5(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", BytesMD5(nil))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", BytesMD5([]byte("abc")))
}
