package media

import (
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

type ftpBackend struct {
	cfg     *models.ConnectionConfig
	timeout time.Duration
	conn    *ftp.ServerConn
}

func newFTPBackend(cfg *models.ConnectionConfig, timeout time.Duration) *ftpBackend {
	return &ftpBackend{cfg: cfg, timeout: timeout}
}

func (b *ftpBackend) Connect() error {
	port := b.cfg.Port
	if port == 0 {
		port = 21
	}

	opts := []ftp.DialOption{ftp.DialWithTimeout(b.timeout)}
	if !b.cfg.Passive {
		// Extended passive mode trips some legacy servers; fall back to
		// plain PASV when the operator unchecks passive negotiation.
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}

	conn, err := ftp.Dial(fmt.Sprintf("%s:%d", b.cfg.Host, port), opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to FTP server: %w", err)
	}

	if err := conn.Login(b.cfg.Username, b.cfg.Password); err != nil {
		conn.Quit()
		return fmt.Errorf("FTP login failed: %w", err)
	}

	b.conn = conn
	return nil
}

func (b *ftpBackend) Fetch(remotePath string) ([]byte, error) {
	resp, err := b.conn.Retr(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s: %w", remotePath, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", remotePath, err)
	}
	return data, nil
}

func (b *ftpBackend) Close() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Quit()
	b.conn = nil
	return err
}
