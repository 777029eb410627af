package media

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeNoisyPNG writes an image that compresses poorly so it is large on disk.
func writeNoisyPNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	rng := rand.New(rand.NewSource(1))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.NRGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestQuality(t *testing.T) {
	assert.Equal(t, 50, Quality(1<<20, 2<<20))
	assert.Equal(t, MinQuality, Quality(1, 1<<30))
	assert.Equal(t, MaxQuality, Quality(1<<20, 1<<20))
	assert.Equal(t, MaxQuality, Quality(100, 0))
}

func TestCompressedPath(t *testing.T) {
	assert.Equal(t, "/tmp/a.compressed.jpg", CompressedPath("/tmp/a.png"))
	assert.Equal(t, "/tmp/dir.v2/a.compressed.jpg", CompressedPath("/tmp/dir.v2/a"))
}

func TestCompress_SmallFileUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.png")
	writeNoisyPNG(t, path, 4)

	assert.Equal(t, path, NewCompressor(nil).Compress(path, 1<<20))
}

func TestCompress_LargeFileReencoded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.png")
	writeNoisyPNG(t, path, 128)

	out := NewCompressor(nil).Compress(path, 4096)
	require.NotEqual(t, path, out)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "large.compressed.jpg"), out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestCompress_UndecodableKeepsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o600))

	assert.Equal(t, path, NewCompressor(nil).Compress(path, 1024))
}

func TestCompress_MissingFileKeepsPath(t *testing.T) {
	assert.Equal(t, "/does/not/exist.png", NewCompressor(nil).Compress("/does/not/exist.png", 10))
}
