// Package modelloader constructs inference sessions from encrypted model
// artifacts.
//
// The consuming inference engine only accepts filesystem paths, so protected
// models are decrypted in memory and materialized into uniquely named
// transient files before session construction. Sessions are cached per
// (artifact, options) pair; temp files are tracked and removed by an
// idempotent cleanup hook at shutdown. Paths that do not resolve to an
// encrypted artifact are delegated verbatim to the original session factory.
package modelloader
