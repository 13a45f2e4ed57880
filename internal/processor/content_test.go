package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareBody_SplitsAtMoreMarker(t *testing.T) {
	intro, full := prepareBody("<p>Teaser</p><!--more--><p>Body</p>")
	assert.Equal(t, "<p>Teaser</p>", intro)
	assert.Equal(t, "<p>Body</p>", full)
}

func TestPrepareBody_NoMarker(t *testing.T) {
	intro, full := prepareBody("<p>Everything</p>")
	assert.Equal(t, "<p>Everything</p>", intro)
	assert.Empty(t, full)
}

func TestPrepareBody_StripsBlockMarkers(t *testing.T) {
	intro, _ := prepareBody(`<!-- wp:heading --><h2>Title</h2><!-- /wp:heading -->`)
	assert.Equal(t, "<h2>Title</h2>", intro)
}

func TestPrepareBody_StripsDisallowedTags(t *testing.T) {
	intro, _ := prepareBody(`<p>ok</p><script>alert(1)</script>`)
	assert.Equal(t, "<p>ok</p>", intro)
}

func TestPrepareBody_MarkerWithSpaces(t *testing.T) {
	intro, full := prepareBody("<p>A</p><!-- more --><p>B</p>")
	assert.Equal(t, "<p>A</p>", intro)
	assert.Equal(t, "<p>B</p>", full)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", slugify("Hello, World!"))
	assert.Equal(t, "release-1-2-3", slugify("Release 1.2.3"))
	assert.Equal(t, "item", slugify("???"))
	assert.Equal(t, "trimmed", slugify("--Trimmed--"))
}
