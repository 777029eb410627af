package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		raw   string
		index int
		want  string
	}{
		{"https://cdn.example.com/img/photo.png?x-oss=1", 0, "photo.png"},
		{"https://cdn.example.com/img/photo", 0, "photo.jpg"},
		{"https://cdn.example.com/img/我的 照片.webp", 0, "image_0.webp"},
		{"https://cdn.example.com/", 3, "image_3.jpg"},
		{"https://cdn.example.com/a/b.c.JPG", 1, "b_c.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FileName(u, tt.index))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jpg", "/b.png":
			w.Write([]byte("image-bytes-" + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	folder := filepath.Join(t.TempDir(), "downloads")
	res := NewResolver("", nil)

	ref := NewReference(srv.URL+"/a.jpg", srv.URL+"/missing.jpg", "ftp://example.com/x.jpg", srv.URL+"/b.png?sig=1")
	paths := res.Resolve(context.Background(), ref, folder)

	require.Len(t, paths, 2)
	assert.Equal(t, "a.jpg", filepath.Base(paths[0]))
	assert.Equal(t, "b.png", filepath.Base(paths[1]))
	for _, p := range paths {
		assert.True(t, filepath.IsAbs(p))
	}

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "image-bytes-/b.png", string(data))
}

func TestResolver_DuplicateNamesDoNotCollide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	res := NewResolver(t.TempDir(), nil)
	paths := res.Resolve(context.Background(), NewReference(srv.URL+"/x/cover.jpg", srv.URL+"/y/cover.jpg"), "")

	require.Len(t, paths, 2)
	assert.NotEqual(t, paths[0], paths[1])
}

func TestResolver_EmptyReference(t *testing.T) {
	res := NewResolver(t.TempDir(), nil)
	assert.Empty(t, res.Resolve(context.Background(), Reference{}, ""))
}
