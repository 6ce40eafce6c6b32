package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/liwenju0/deepenc/interfaces"
)

// Factory creates artifact backends from location URIs and manages
// multi-backend configurations for redundant artifact sources.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance that can create artifact backends.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{log: logger}
}

// BackendFor creates an artifact backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - Read-only IPFS directory rooted at a CID
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *Factory) BackendFor(location interfaces.ArtifactLocation) (interfaces.ArtifactBackend, error) {
	u, err := url.Parse(string(location))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ipfs":
		return sf.createIPFSBackend(u)
	case "s3":
		return sf.createS3Backend(u)
	case "file":
		return sf.createFileBackend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// MultiBackendFor creates a multi-backend from a list of location URIs.
// The multi-backend aggregates all valid backends: fetches are served by the
// first backend that has the artifact, stores go to every available one.
// Returns an error if no valid backends could be created.
func (sf *Factory) MultiBackendFor(locations []interfaces.ArtifactLocation) (interfaces.ArtifactBackend, error) {
	backends := make([]interfaces.ArtifactBackend, 0, len(locations))

	for _, loc := range locations {
		backend, err := sf.BackendFor(loc)
		if err != nil {
			sf.log.Warn("Failed to create artifact backend",
				"err", err,
				slog.String("location", string(loc)))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid artifact backends created")
	}

	return NewMultiBackend(backends, sf.log), nil
}

// createIPFSBackend creates a read-only IPFS artifact backend.
// URI format: ipfs://host:port/<root-cid>
func (sf *Factory) createIPFSBackend(u *url.URL) (interfaces.ArtifactBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", u.String()))

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	rootCID := strings.Trim(u.Path, "/")
	return NewIPFSBackend(host, port, rootCID, sf.log)
}

// createS3Backend creates an S3 or S3-compatible artifact backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com
// The backend supports both public buckets (read-only) and authenticated access.
func (sf *Factory) createS3Backend(u *url.URL) (interfaces.ArtifactBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("uri", u.String()))

	bucketName := u.Host
	prefix := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1" // Default region
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
		sf.log.Debug("Using embedded credentials for write access")
	} else {
		sf.log.Debug("No credentials provided, S3 bucket assumed to be public, write operations may fail")
	}

	return NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey, sf.log)
}

// createFileBackend creates a filesystem artifact backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *Factory) createFileBackend(u *url.URL) (interfaces.ArtifactBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewFileBackend(path, sf.log)
}
