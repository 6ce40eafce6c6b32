// Package storage provides path-addressed artifact backends for the
// protection engine.
//
// Resolvers read encrypted artifact bytes through an
// interfaces.ArtifactBackend so that protected trees may live on the local
// filesystem, in S3-compatible object storage, or behind an IPFS directory.
// The file backend is the default wiring; MultiBackend aggregates several
// backends and serves each fetch from the first one that has the content.
//
// Backends are created from location URIs via Factory:
//
//	file:///opt/app/build
//	s3://bucket/prefix?region=us-east-1
//	ipfs://127.0.0.1:5001/<root-cid>
package storage
