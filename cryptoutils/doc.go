// Package cryptoutils implements the partial-payload cipher engine used for
// artifact protection at rest.
//
// Artifacts are protected with AES in CFB mode (128-bit segments) over a
// bounded prefix of the payload; bytes beyond the configured encryption
// length are stored untouched. This keeps the cipher cost of very large
// model files constant while still denying an attacker the structurally
// significant head of the file.
//
// The 16-byte IV is a build-time constant shared between the build-time
// encryptor and the runtime resolvers. A per-artifact IV would be stronger
// under CFB, but the fixed IV is what makes deterministic partial decryption
// possible without a header format; the tradeoff is deliberate and the
// on-disk layout is just ciphertext || raw tail.
//
// The package also provides Argon2id-based key derivation for turning
// license material of arbitrary length into a valid AES key, and AES-GCM
// sealing used by hardware license handling.
package cryptoutils
