package media

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentbridge/cms-migration-service/internal/config"
	"github.com/contentbridge/cms-migration-service/internal/models"
)

// fakeBackend serves fetches from an in-memory file map and records calls.
type fakeBackend struct {
	files      map[string][]byte
	connectErr error

	connects int
	closes   int
	fetches  []string
}

func (b *fakeBackend) Connect() error {
	b.connects++
	return b.connectErr
}

func (b *fakeBackend) Fetch(remotePath string) ([]byte, error) {
	b.fetches = append(b.fetches, remotePath)
	data, ok := b.files[remotePath]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", remotePath)
	}
	return data, nil
}

func (b *fakeBackend) Close() error {
	b.closes++
	return nil
}

func newTestResolver(t *testing.T, backend Backend) *Resolver {
	t.Helper()
	r := NewResolver(
		&models.ConnectionConfig{Type: models.ConnectionFTP, Host: "example.com", Username: "u"},
		config.MediaConfig{Dir: t.TempDir(), PublicBase: "/images", Timeout: time.Second},
	)
	r.newBackend = func(*models.ConnectionConfig, time.Duration) (Backend, error) {
		return backend, nil
	}
	return r
}

const originalURL = "https://old.example.com/wp-content/uploads/2023/05/pic.jpg"

func TestRewriteContent_PrefersResizedVariant(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{
		"/wp-content/uploads/2023/05/pic-768x512.jpg": []byte("resized"),
		"/wp-content/uploads/2023/05/pic.jpg":         []byte("original"),
	}}
	r := newTestResolver(t, backend)

	out, count, warnings := r.RewriteContent(fmt.Sprintf(`<p><img src="%s"></p>`, originalURL))

	assert.Equal(t, 1, count)
	assert.Empty(t, warnings)
	assert.Contains(t, out, "/images/imports/2023_05_pic-768x512.jpg")
	assert.NotContains(t, out, "old.example.com")
	require.Len(t, backend.fetches, 1, "original never fetched when variant exists")
	assert.Equal(t, "/wp-content/uploads/2023/05/pic-768x512.jpg", backend.fetches[0])
}

func TestRewriteContent_FallsBackToOriginal(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{
		"/wp-content/uploads/2023/05/pic.jpg": []byte("original"),
	}}
	r := newTestResolver(t, backend)

	out, count, warnings := r.RewriteContent(fmt.Sprintf(`<p><img src="%s"></p>`, originalURL))

	assert.Equal(t, 1, count)
	assert.Empty(t, warnings)
	assert.Contains(t, out, "/images/imports/2023_05_pic.jpg")
	require.Len(t, backend.fetches, 2, "variant tried first, then original")
}

func TestRewriteContent_UnresolvableLeftUntouched(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{}}
	r := newTestResolver(t, backend)

	content := fmt.Sprintf(`<p><img src="%s"></p>`, originalURL)
	out, count, warnings := r.RewriteContent(content)

	assert.Equal(t, content, out, "broken reference stays in place")
	assert.Equal(t, 0, count)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], originalURL)
}

func TestRewriteContent_DownloadCache(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{
		"/wp-content/uploads/2023/05/pic-768x512.jpg": []byte("resized"),
	}}
	r := newTestResolver(t, backend)

	content := fmt.Sprintf(`<p><img src="%s"></p>`, originalURL)
	_, _, _ = r.RewriteContent(content)
	_, count, _ := r.RewriteContent(content)

	assert.Equal(t, 1, count)
	assert.Len(t, backend.fetches, 1, "exactly one remote fetch per distinct path per run")
}

func TestRewriteContent_ExistingLocalCopyReused(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{}}
	r := newTestResolver(t, backend)

	dir := filepath.Join(r.mediaCfg.Dir, "imports")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2023_05_pic-768x512.jpg"), []byte("resized"), 0o644))

	out, count, warnings := r.RewriteContent(fmt.Sprintf(`<p><img src="%s"></p>`, originalURL))

	assert.Equal(t, 1, count)
	assert.Empty(t, warnings)
	assert.Contains(t, out, "/images/imports/2023_05_pic-768x512.jpg")
	assert.Empty(t, backend.fetches, "local copy served without a fetch")
	assert.Equal(t, 0, backend.connects, "no connection when nothing needs fetching")
}

func TestRewriteContent_ConnectFailureDegradesToNoOp(t *testing.T) {
	backend := &fakeBackend{connectErr: fmt.Errorf("530 login incorrect")}
	r := newTestResolver(t, backend)

	content := fmt.Sprintf(`<p><img src="%s"></p>`, originalURL)
	out, count, warnings := r.RewriteContent(content)

	assert.Equal(t, content, out)
	assert.Equal(t, 0, count)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "media connection failed")

	// Subsequent blocks short-circuit without reconnect attempts.
	out, _, warnings = r.RewriteContent(content)
	assert.Equal(t, content, out)
	assert.NotEmpty(t, warnings)
	assert.Equal(t, 1, backend.connects)
}

func TestRewriteContent_NonUploadURLIgnored(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{}}
	r := newTestResolver(t, backend)

	content := `<p><img src="https://cdn.example.com/logo.png"></p>`
	out, count, warnings := r.RewriteContent(content)

	assert.Equal(t, content, out)
	assert.Equal(t, 0, count)
	require.Len(t, warnings, 1, "non-upload image is reported unresolved")
	assert.Empty(t, backend.connects)
}

func TestRewriteContent_CustomStorageDir(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{
		"/wp-content/uploads/2023/05/pic-768x512.jpg": []byte("resized"),
	}}
	r := newTestResolver(t, backend)
	r.cfg.MediaStorageMode = models.StorageModeCustom
	r.cfg.MediaCustomDir = "legacy-site"

	out, _, _ := r.RewriteContent(fmt.Sprintf(`<p><img src="%s"></p>`, originalURL))

	assert.Contains(t, out, "/images/legacy-site/2023_05_pic-768x512.jpg")
	_, err := os.Stat(filepath.Join(r.mediaCfg.Dir, "legacy-site", "2023_05_pic-768x512.jpg"))
	assert.NoError(t, err)
}

func TestResolverClose(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{
		"/wp-content/uploads/a-768x512.png": []byte("x"),
	}}
	r := newTestResolver(t, backend)

	_, _, _ = r.RewriteContent(`<img src="http://s/wp-content/uploads/a.png">`)
	require.NoError(t, r.Close())
	assert.Equal(t, 1, backend.closes)

	// Close without a connection is a no-op.
	r2 := newTestResolver(t, backend)
	require.NoError(t, r2.Close())
	assert.Equal(t, 1, backend.closes)
}

func TestExtractImageURLs_UnionAndDedupe(t *testing.T) {
	content := `<p><img src="https://a/wp-content/uploads/x.jpg"></p>
	<p>bare link https://a/wp-content/uploads/x.jpg and another
	https://a/wp-content/uploads/y.png</p>
	<img src="https://cdn/other.gif">`

	urls := extractImageURLs(content)
	assert.Equal(t, []string{
		"https://a/wp-content/uploads/x.jpg",
		"https://cdn/other.gif",
		"https://a/wp-content/uploads/y.png",
	}, urls)
}

func TestFlattenFilename(t *testing.T) {
	assert.Equal(t, "2023_05_pic.jpg", flattenFilename("/wp-content/uploads/2023/05/pic.jpg"))
	assert.Equal(t, "pic.jpg", flattenFilename("/wp-content/uploads/pic.jpg"))
	assert.Equal(t, "a_bc.png", flattenFilename("/a/b©!c.png"))
}

func TestVariantPath(t *testing.T) {
	assert.Equal(t, "/u/pic-768x512.jpg", variantPath("/u/pic.jpg"))
	assert.Equal(t, "/u/pic-768x512", variantPath("/u/pic"))
}

func TestTestConnection_InvalidConfig(t *testing.T) {
	ok, msg := TestConnection(&models.ConnectionConfig{Type: "carrier-pigeon"}, time.Second)
	assert.False(t, ok)
	assert.Contains(t, msg, "unsupported connection type")

	ok, msg = TestConnection(&models.ConnectionConfig{
		Type: models.ConnectionFTP, Host: "h", Username: "u",
		MediaStorageMode: models.StorageModeCustom,
	}, time.Second)
	assert.False(t, ok)
	assert.Contains(t, msg, "media_custom_dir")
}
