package interfaces

import "context"

// KeyStrategy is a single source in the key resolution chain. Strategies are
// evaluated in priority order with a uniform first-success contract: a
// strategy either returns a key, or returns an error meaning "this source is
// unavailable, try the next one". Per-strategy errors are never fatal on
// their own; resolution fails only when every strategy has been exhausted.
type KeyStrategy interface {
	// Name identifies the strategy in logs and diagnostics.
	Name() string

	// Source reports which KeySource this strategy represents.
	Source() KeySource

	// TryResolve attempts to produce a key from this source. An error means
	// the source is unavailable or produced malformed material; the resolver
	// logs it and continues with the next strategy.
	TryResolve(ctx context.Context) (Key, error)
}

// HardwareBinding is the capability interface of a vendor hardware key
// device. The concrete binding is discovered at runtime; every call site
// treats absence as a normal, expected branch.
//
// All three operations are best-effort: an I/O error or malformed device
// response is equivalent to "source unavailable" and degrades resolution to
// the next key source.
type HardwareBinding interface {
	// DeviceID returns a stable identifier reported by the hardware device,
	// used to scope license file lookups.
	DeviceID() (string, error)

	// ReadLicense reads the raw license blob stored on the device.
	ReadLicense() ([]byte, error)

	// DecryptLicense decrypts hardware-encrypted license material using the
	// device's own decryption capability.
	DecryptLicense(blob []byte) ([]byte, error)
}

// KeyResolver produces the single symmetric key for the process lifetime.
type KeyResolver interface {
	// Key returns the resolved key, or an error wrapping ErrAuthentication
	// if resolution never succeeded.
	Key() (Key, error)

	// VerifyAuthorization reports whether a key was resolved and its length
	// is valid.
	VerifyAuthorization() bool

	// Source reports which key source satisfied resolution.
	Source() KeySource
}
