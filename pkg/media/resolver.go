package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/entrhq/headline/pkg/logging"
)

const (
	// DefaultDownloadTimeout bounds each image download.
	DefaultDownloadTimeout = 30 * time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Resolver downloads referenced images into a local folder.
type Resolver struct {
	dir       string
	client    *http.Client
	userAgent string
	logger    *logging.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) { r.client = c }
}

// WithUserAgent overrides the download user agent.
func WithUserAgent(ua string) ResolverOption {
	return func(r *Resolver) { r.userAgent = ua }
}

// NewResolver creates a resolver writing to dir by default.
func NewResolver(dir string, logger *logging.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Resolver{
		dir:       dir,
		client:    &http.Client{Timeout: DefaultDownloadTimeout},
		userAgent: defaultUserAgent,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the default download folder.
func (r *Resolver) Dir() string {
	return r.dir
}

// Resolve downloads every URL of ref into folder (the resolver's default
// folder when empty) and returns the absolute local paths in reference
// order. Failed downloads and non-http(s) entries are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, ref Reference, folder string) []string {
	if ref.Empty() {
		return nil
	}
	if folder == "" {
		folder = r.dir
	}
	if err := os.MkdirAll(folder, 0o750); err != nil {
		r.logger.Errorf("cannot create image folder %s: %v", folder, err)
		return nil
	}

	paths := make([]string, 0, len(ref.URLs))
	used := make(map[string]bool)
	for i, raw := range ref.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			r.logger.Warnf("skipping image reference %q: not an http(s) URL", raw)
			continue
		}

		name := FileName(u, i)
		if used[name] {
			name = fmt.Sprintf("%d_%s", i, name)
		}
		used[name] = true

		dest, err := filepath.Abs(filepath.Join(folder, name))
		if err != nil {
			r.logger.Warnf("skipping image %s: %v", raw, err)
			continue
		}
		if err := r.download(ctx, u.String(), dest); err != nil {
			r.logger.Warnf("failed to download image %s: %v", raw, err)
			continue
		}
		r.logger.Infof("downloaded image %s -> %s", raw, dest)
		paths = append(paths, dest)
	}
	return paths
}

func (r *Resolver) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = os.Remove(dest)
		return err
	}
	return f.Close()
}

// FileName derives a safe local file name from the URL path: the basename
// with its query dropped, the stem reduced to [A-Za-z0-9_-], ".jpg" when no
// extension is present and image_<index> when nothing usable remains.
func FileName(u *url.URL, index int) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		base = ""
	}

	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if ext == "" || unsafeChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ".jpg"
	}

	stem = unsafeChars.ReplaceAllString(stem, "_")
	if strings.Trim(stem, "_") == "" {
		stem = fmt.Sprintf("image_%d", index)
	}
	return stem + ext
}
