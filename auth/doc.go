// Package auth resolves the process-wide encryption key.
//
// Resolution walks an ordered list of key strategies with a uniform
// first-success contract: hardware device license, device-scoped license
// file, generic license file, optional Vault secret, optional Shamir share
// reconstruction, and finally the AUTH_CODE environment variable. Failures
// at an individual source are logged and absorbed; resolution fails only
// when every source has been exhausted, in which case the whole protection
// system refuses to start.
//
// The operating mode (AUTH_MODE) controls how license material is
// interpreted: in development mode the license blob is the key itself, in
// production mode it is ciphertext that the hardware binding decrypts.
//
// Resolution is one-shot: the key is resolved once per resolver lifetime
// (normally the process) and never re-resolved during the run.
package auth
