package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	gopath "path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/liwenju0/deepenc/interfaces"
)

// IPFSBackend implements a read-only artifact backend over the
// InterPlanetary File System. The backend is rooted at a directory CID;
// artifact paths resolve to entries under that directory. Store is not
// supported because adding files would change the root CID.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	rootCID     string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates an IPFS artifact backend connected to the given
// node and rooted at rootCID.
func NewIPFSBackend(host, port, rootCID string, log *slog.Logger) (*IPFSBackend, error) {
	if rootCID == "" {
		return nil, fmt.Errorf("ipfs backend requires a root directory CID")
	}

	apiURL := fmt.Sprintf("%s:%s", host, port)

	return &IPFSBackend{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		rootCID:     rootCID,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/%s", apiURL, rootCID),
	}, nil
}

// Fetch retrieves an artifact by its path under the root directory CID.
// Returns ErrArtifactNotFound if the entry doesn't exist or
// ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Fetch(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	ipfsPath := b.ipfsPath(path)

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.Cat(ipfsPath)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") {
			b.log.Debug("Artifact not found in IPFS",
				slog.String("path", ipfsPath),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrArtifactNotFound
		}

		b.log.Error("Failed to fetch data from IPFS",
			slog.String("path", ipfsPath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		b.log.Error("Failed to read data from IPFS",
			slog.String("path", ipfsPath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Fetched artifact from IPFS",
		slog.String("path", ipfsPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store is not supported: the backend is pinned to an immutable root CID.
func (b *IPFSBackend) Store(ctx context.Context, path string, data []byte) error {
	return fmt.Errorf("ipfs backend is read-only")
}

// Exists reports whether the entry resolves under the root CID.
func (b *IPFSBackend) Exists(ctx context.Context, path string) bool {
	if !b.shell.IsUp() {
		return false
	}
	_, err := b.shell.ObjectStat(b.ipfsPath(path))
	return err == nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) ipfsPath(path string) string {
	return gopath.Join("/ipfs", b.rootCID, strings.TrimPrefix(path, "/"))
}
