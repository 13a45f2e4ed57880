package media

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

// zipBackend reads media from an uploaded archive on local disk. "Connect"
// means opening the archive; no network session exists.
type zipBackend struct {
	cfg    *models.ConnectionConfig
	reader *zip.ReadCloser
}

func newZipBackend(cfg *models.ConnectionConfig) *zipBackend {
	return &zipBackend{cfg: cfg}
}

func (b *zipBackend) Connect() error {
	reader, err := zip.OpenReader(b.cfg.ArchivePath)
	if err != nil {
		return fmt.Errorf("failed to open media archive: %w", err)
	}
	b.reader = reader
	return nil
}

// Fetch looks the path up directly in the archive. Archives exported from a
// site backup usually carry a leading directory, so a suffix match is
// accepted when no exact entry exists.
func (b *zipBackend) Fetch(remotePath string) ([]byte, error) {
	want := strings.TrimPrefix(remotePath, "/")

	var match *zip.File
	for _, f := range b.reader.File {
		if f.Name == want {
			match = f
			break
		}
		if match == nil && strings.HasSuffix(f.Name, "/"+want) {
			match = f
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%s not found in archive", want)
	}

	rc, err := match.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in archive: %w", want, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from archive: %w", want, err)
	}
	return data, nil
}

func (b *zipBackend) Close() error {
	if b.reader == nil {
		return nil
	}
	err := b.reader.Close()
	b.reader = nil
	return err
}
