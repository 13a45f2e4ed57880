package media

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/contentbridge/cms-migration-service/internal/config"
	"github.com/contentbridge/cms-migration-service/internal/models"
)

const uploadsMarker = "/wp-content/uploads/"

// sizeVariantSuffix is the resized-variant convention preferred over the
// full-resolution original when both exist remotely.
const sizeVariantSuffix = "-768x512"

var (
	// uploadURLPattern catches upload-path image URLs that appear outside
	// of <img> tags (galleries, inline styles, plain links).
	uploadURLPattern = regexp.MustCompile(
		`https?://[^"'\s<>]+/wp-content/uploads/[^"'\s<>]+?\.(?:jpe?g|png|gif|webp)`)

	filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

	errConnectFailed = errors.New("media connection failed")
)

// Resolver rewrites embedded media URLs in content to locally re-hosted
// copies. One Resolver serves one import run: the remote connection is
// opened lazily on the first asset that needs a fetch and closed once at
// run end, and the downloaded-file cache guarantees at most one remote
// fetch per distinct remote path.
type Resolver struct {
	cfg      *models.ConnectionConfig
	mediaCfg config.MediaConfig

	// newBackend is swapped out by tests.
	newBackend func(*models.ConnectionConfig, time.Duration) (Backend, error)

	backend   Backend
	connected bool
	failed    bool
	cache     map[string]string
}

// NewResolver creates a resolver for one run. The connection config must
// already be validated.
func NewResolver(cfg *models.ConnectionConfig, mediaCfg config.MediaConfig) *Resolver {
	return &Resolver{
		cfg:        cfg,
		mediaCfg:   mediaCfg,
		newBackend: NewBackend,
		cache:      make(map[string]string),
	}
}

// RewriteContent extracts image URLs from the content, resolves each against
// the remote backend and returns the content with resolved URLs replaced by
// local ones. Unresolvable URLs are left untouched and reported as warnings;
// a connection failure degrades the whole call to a no-op.
func (r *Resolver) RewriteContent(content string) (string, int, []string) {
	urls := extractImageURLs(content)
	if len(urls) == 0 {
		return content, 0, nil
	}
	if r.failed {
		return content, 0, []string{"media connection unavailable, content left unchanged"}
	}

	out := content
	rewritten := 0
	var warnings []string
	for _, raw := range urls {
		local, ok, err := r.resolveOne(raw)
		if err != nil {
			// Connection-level failure: give up on this content block
			// entirely, leaving it unchanged.
			r.failed = true
			return content, 0, []string{fmt.Sprintf("media connection failed: %v", err)}
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("could not resolve media URL %s", raw))
			continue
		}
		out = strings.ReplaceAll(out, raw, local)
		rewritten++
	}
	return out, rewritten, warnings
}

// resolveOne resolves a single extracted URL to a local URL. The candidate
// order encodes the variant preference: the bandwidth-cheap resized variant
// first, the full-resolution original second. The first candidate found in
// the cache, on local disk or on the remote wins. A non-nil error means the
// connection itself failed, not that the asset is missing.
func (r *Resolver) resolveOne(rawURL string) (string, bool, error) {
	remote := remotePath(rawURL)
	if remote == "" {
		return "", false, nil
	}

	for _, candidate := range []string{variantPath(remote), remote} {
		if local, ok := r.cache[candidate]; ok {
			return local, true, nil
		}

		name := flattenFilename(candidate)
		localPath := filepath.Join(r.localDir(), name)
		if _, err := os.Stat(localPath); err == nil {
			local := r.localURL(name)
			r.cache[candidate] = local
			return local, true, nil
		}

		data, err := r.fetch(candidate)
		if err != nil {
			if errors.Is(err, errConnectFailed) {
				return "", false, err
			}
			continue // asset absent remotely, try next candidate
		}

		if err := os.MkdirAll(r.localDir(), 0o755); err != nil {
			return "", false, nil
		}
		if err := os.WriteFile(localPath, data, 0o644); err != nil {
			return "", false, nil
		}

		local := r.localURL(name)
		r.cache[candidate] = local
		return local, true, nil
	}

	return "", false, nil
}

// fetch retrieves one remote path, connecting lazily on first use.
func (r *Resolver) fetch(remote string) ([]byte, error) {
	if !r.connected {
		backend := r.backend
		if backend == nil {
			b, err := r.newBackend(r.cfg, r.mediaCfg.Timeout)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errConnectFailed, err)
			}
			backend = b
		}
		if err := backend.Connect(); err != nil {
			return nil, fmt.Errorf("%w: %v", errConnectFailed, err)
		}
		r.backend = backend
		r.connected = true
	}
	return r.backend.Fetch(remote)
}

// Close tears down the remote connection, if one was opened.
func (r *Resolver) Close() error {
	if !r.connected || r.backend == nil {
		return nil
	}
	r.connected = false
	return r.backend.Close()
}

func (r *Resolver) localDir() string {
	return filepath.Join(r.mediaCfg.Dir, r.subdir())
}

func (r *Resolver) localURL(name string) string {
	return path.Join(r.mediaCfg.PublicBase, r.subdir(), name)
}

func (r *Resolver) subdir() string {
	if r.cfg.MediaStorageMode == models.StorageModeCustom {
		return r.cfg.MediaCustomDir
	}
	return "imports"
}

// TestConnection performs a connect-and-disconnect cycle for upfront
// credential validation. It never leaves a live connection and touches no
// cache or local storage.
func TestConnection(cfg *models.ConnectionConfig, timeout time.Duration) (bool, string) {
	if err := cfg.Validate(); err != nil {
		return false, err.Error()
	}

	backend, err := NewBackend(cfg, timeout)
	if err != nil {
		return false, err.Error()
	}

	if err := backend.Connect(); err != nil {
		backend.Close()
		return false, err.Error()
	}
	if err := backend.Close(); err != nil {
		return false, fmt.Sprintf("connected, but disconnect failed: %v", err)
	}

	return true, "connection successful"
}

// extractImageURLs unions the <img src> scan with the upload-path pattern
// and deduplicates, preserving first-seen order.
func extractImageURLs(content string) []string {
	seen := make(map[string]struct{})
	var urls []string
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		doc.Find("img").Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr("src"); ok {
				add(src)
			}
		})
	}
	for _, m := range uploadURLPattern.FindAllString(content, -1) {
		add(m)
	}

	return urls
}

// remotePath derives the remote filesystem path from an extracted URL. Only
// URLs pointing into the uploads root are resolvable.
func remotePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := u.Path
	if p == "" {
		p = rawURL
	}
	if !strings.Contains(p, uploadsMarker) {
		return ""
	}
	return p
}

// variantPath inserts the resized-variant suffix before the extension.
func variantPath(remote string) string {
	ext := path.Ext(remote)
	if ext == "" {
		return remote + sizeVariantSuffix
	}
	return strings.TrimSuffix(remote, ext) + sizeVariantSuffix + ext
}

// flattenFilename turns a remote path into a local filename: the uploads
// prefix and path separators become underscores, then the result is
// sanitized to a restricted character set. Two distinct remote paths that
// flatten to the same string will collide; this is a documented limitation.
func flattenFilename(remote string) string {
	name := remote
	if idx := strings.Index(name, uploadsMarker); idx >= 0 {
		name = name[idx+len(uploadsMarker):]
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return filenameSanitizer.ReplaceAllString(name, "")
}
