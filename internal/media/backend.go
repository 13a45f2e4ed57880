// Package media locates, fetches and locally re-hosts image assets
// referenced by migrated content.
package media

import (
	"fmt"
	"time"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

// Backend is one remote source of media files. Connect is called once per
// run, lazily, before the first Fetch; Close once at run end.
type Backend interface {
	Connect() error
	Fetch(remotePath string) ([]byte, error)
	Close() error
}

// NewBackend creates a backend instance based on the connection config
func NewBackend(cfg *models.ConnectionConfig, timeout time.Duration) (Backend, error) {
	switch cfg.Type {
	case models.ConnectionFTP:
		return newFTPBackend(cfg, timeout), nil
	case models.ConnectionSFTP:
		return newSFTPBackend(cfg, timeout), nil
	case models.ConnectionZIP:
		return newZipBackend(cfg), nil
	case models.ConnectionS3:
		return newS3Backend(cfg)
	default:
		return nil, fmt.Errorf("unsupported connection type: %s", cfg.Type)
	}
}
