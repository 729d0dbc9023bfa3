package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/JaimeStill/camxfer/pkg/lifecycle"
)

type sftpSource struct {
	host     string
	port     int
	user     string
	password string
	keyFile  string
	hosts    string
	root     string
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	conn   *ssh.Client
	client *sftp.Client
}

func newSFTP(cfg *Config, logger *slog.Logger) *sftpSource {
	return &sftpSource{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		keyFile:  cfg.KeyFile,
		hosts:    cfg.KnownHosts,
		root:     cfg.Root,
		timeout:  cfg.TimeoutDuration(),
		logger:   logger.With("system", "source", "kind", KindSFTP, "host", cfg.Host),
	}
}

func (s *sftpSource) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting source connection")

	lc.OnStartup(func() error {
		_, err := s.connect()
		return err
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.close()
	})

	return nil
}

func (s *sftpSource) connect() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	hostKey, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            s.user,
		HostKeyCallback: hostKey,
		Timeout:         s.timeout,
	}

	switch {
	case s.keyFile != "":
		key, err := os.ReadFile(s.keyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: parse private key: %w", err)
		}
		config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	case s.password != "":
		config.Auth = []ssh.AuthMethod{ssh.Password(s.password)}
	default:
		return nil, fmt.Errorf("sftp: no authentication method provided")
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("sftp: connect %s: %w", addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: create client: %w", err)
	}

	s.conn = conn
	s.client = client
	s.logger.Info("source connection established")
	return client, nil
}

// hostKeyCallback verifies against the configured known_hosts file.
// Without one, host keys are not checked.
func (s *sftpSource) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.hosts == "" {
		s.logger.Warn("no known_hosts configured, host key not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(s.hosts)
	if err != nil {
		return nil, fmt.Errorf("sftp: load known_hosts: %w", err)
	}
	return cb, nil
}

func (s *sftpSource) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.logger.Info("source connection closed")
}

func (s *sftpSource) Fetch(ctx context.Context, p, destDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client, err := s.connect()
	if err != nil {
		return "", err
	}

	src, err := client.Open(s.resolve(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("sftp: open %s: %w", p, err)
	}
	defer src.Close()

	dest := filepath.Join(destDir, path.Base(p))
	if err := writeFile(dest, src); err != nil {
		return "", fmt.Errorf("sftp: fetch %s: %w", p, err)
	}

	s.logger.Debug("file fetched", "path", p, "dest", dest)
	return dest, nil
}

func (s *sftpSource) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := s.connect()
	if err != nil {
		return nil, err
	}

	infos, err := client.ReadDir(s.resolve(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sftp: list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{Name: info.Name(), IsDir: info.IsDir()})
	}
	sortEntries(entries)
	return entries, nil
}

func (s *sftpSource) resolve(p string) string {
	if s.root == "" || path.IsAbs(p) {
		return p
	}
	return path.Join(s.root, p)
}
