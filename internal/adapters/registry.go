// Package adapters converts uploaded source-CMS exports into the
// intermediate document consumed by the processor.
package adapters

import (
	"errors"
	"fmt"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

// ErrNoAdapter is returned when no registered adapter recognizes the source
// tag. This is distinct from an adapter recognizing the tag but failing to
// parse the file, which surfaces as that adapter's error.
var ErrNoAdapter = errors.New("no adapter recognized the source format")

// Adapter converts a raw uploaded file into an intermediate document.
// Convert must return (nil, nil) when sourceTag is not the adapter's own
// identity: a tag mismatch is a filter result, not a parse attempt. A
// matching tag with unparseable input returns an error.
type Adapter interface {
	Name() string
	Convert(sourceTag, filePath string) (*models.IntermediateDocument, error)
}

// Registry tries adapters in registration order and returns the first
// non-nil document. If two adapters claim the same tag, the first registered
// wins; later ones are never consulted.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry over the given adapters, in order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Convert runs the upload through the registered adapters.
func (r *Registry) Convert(sourceTag, filePath string) (*models.IntermediateDocument, error) {
	for _, a := range r.adapters {
		doc, err := a.Convert(sourceTag, filePath)
		if err != nil {
			return nil, fmt.Errorf("%s adapter: %w", a.Name(), err)
		}
		if doc != nil {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoAdapter, sourceTag)
}
