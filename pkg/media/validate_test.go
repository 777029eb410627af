package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLocal(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.JPG")
	require.NoError(t, os.WriteFile(good, []byte("x"), 0o600))
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("x"), 0o600))
	big := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(big, make([]byte, 100), 0o600))

	assert.NoError(t, ValidateLocal(nil, 0))
	assert.NoError(t, ValidateLocal([]string{good}, 0))

	tests := []struct {
		name  string
		paths []string
		max   int64
		path  string
	}{
		{"missing", []string{good, filepath.Join(dir, "nope.png")}, 0, filepath.Join(dir, "nope.png")},
		{"directory", []string{dir}, 0, dir},
		{"unsupported extension", []string{text}, 0, text},
		{"too large", []string{big}, 10, big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocal(tt.paths, tt.max)
			var re *ResourceError
			require.True(t, errors.As(err, &re), "want *ResourceError, got %v", err)
			assert.Equal(t, tt.path, re.Path)
		})
	}
}
