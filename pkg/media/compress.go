package media

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"math"
	"os"
	"strings"

	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/entrhq/headline/pkg/logging"
)

// DefaultMaxBytes is the size above which images are recompressed.
const DefaultMaxBytes = 1 << 20

// Quality bounds for recompression.
const (
	MinQuality = 20
	MaxQuality = 95
)

// Compressor shrinks oversized images.
type Compressor struct {
	logger *logging.Logger
}

// NewCompressor creates a compressor.
func NewCompressor(logger *logging.Logger) *Compressor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Compressor{logger: logger}
}

// Compress returns path unchanged when the file is at most maxBytes.
// Otherwise it re-encodes the image as JPEG, flattened onto white, next to
// the original as <stem>.compressed.jpg and returns that path. Any failure
// yields the original path.
func (c *Compressor) Compress(path string, maxBytes int64) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		c.logger.Warnf("cannot stat image %s: %v", path, err)
		return path
	}
	if info.Size() <= maxBytes {
		return path
	}

	out, err := compressFile(path, Quality(maxBytes, info.Size()))
	if err != nil {
		c.logger.Warnf("compression of %s failed, using original: %v", path, err)
		return path
	}
	c.logger.Infof("compressed %s (%d bytes) -> %s", path, info.Size(), out)
	return out
}

// Quality picks the JPEG quality for an image of size bytes that should fit
// maxBytes.
func Quality(maxBytes, size int64) int {
	if size <= 0 {
		return MaxQuality
	}
	q := int(math.Round(float64(maxBytes) / float64(size) * 100))
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}

// CompressedPath returns the output path used for path.
func CompressedPath(path string) string {
	dot := strings.LastIndex(path, ".")
	if dot <= strings.LastIndexAny(path, `/\`) {
		return path + ".compressed.jpg"
	}
	return path[:dot] + ".compressed.jpg"
}

func compressFile(path string, quality int) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	src, _, err := image.Decode(in)
	in.Close()
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	flat := image.NewRGBA(src.Bounds())
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, src.Bounds().Min, draw.Over)

	dest := CompressedPath(path)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(f, flat, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dest, nil
}
