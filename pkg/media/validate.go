package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the image formats the platform accepts.
var SupportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// ValidateLocal checks that every path names an existing regular file with a
// supported image extension and, when maxBytes is positive, at most maxBytes
// in size. The first problem is returned as a *ResourceError.
func ValidateLocal(paths []string, maxBytes int64) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			return &ResourceError{Path: p, Reason: "file does not exist"}
		}
		if err != nil {
			return &ResourceError{Path: p, Reason: err.Error()}
		}
		if !info.Mode().IsRegular() {
			return &ResourceError{Path: p, Reason: "not a regular file"}
		}
		if ext := strings.ToLower(filepath.Ext(p)); !SupportedExtensions[ext] {
			return &ResourceError{Path: p, Reason: fmt.Sprintf("unsupported image format %q", ext)}
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			return &ResourceError{Path: p, Reason: fmt.Sprintf("%d bytes exceeds the %d byte limit", info.Size(), maxBytes)}
		}
	}
	return nil
}
