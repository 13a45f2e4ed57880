package media

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

type sftpBackend struct {
	cfg     *models.ConnectionConfig
	timeout time.Duration
	ssh     *ssh.Client
	client  *sftp.Client
}

func newSFTPBackend(cfg *models.ConnectionConfig, timeout time.Duration) *sftpBackend {
	return &sftpBackend{cfg: cfg, timeout: timeout}
}

func (b *sftpBackend) Connect() error {
	port := b.cfg.Port
	if port == 0 {
		port = 22
	}

	sshCfg := &ssh.ClientConfig{
		User:            b.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(b.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         b.timeout,
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", b.cfg.Host, port), sshCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to SFTP server: %w", err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open SFTP session: %w", err)
	}

	b.ssh = conn
	b.client = client
	return nil
}

func (b *sftpBackend) Fetch(remotePath string) ([]byte, error) {
	f, err := b.client.Open(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", remotePath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", remotePath, err)
	}
	return data, nil
}

func (b *sftpBackend) Close() error {
	var err error
	if b.client != nil {
		err = b.client.Close()
		b.client = nil
	}
	if b.ssh != nil {
		if cerr := b.ssh.Close(); err == nil {
			err = cerr
		}
		b.ssh = nil
	}
	return err
}
