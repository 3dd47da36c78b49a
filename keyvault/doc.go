// Package keyvault protects threshold key shares at rest and provides
// disaster recovery for the share bundle produced at key ceremony time.
//
// # Sealed Shares
//
// Each attestor's key share is sealed under a passphrase before it touches
// disk. Sealing derives a 256-bit AES key from the passphrase with Argon2id
// and encrypts the serialized share with AES-GCM. The sealed blob is
// self-contained: it carries the Argon2id salt and the GCM nonce alongside
// the ciphertext.
//
//	sealed, err := keyvault.SealShare(share, passphrase)
//	share, err := keyvault.OpenShare(sealed, passphrase)
//
// # Recovery Vault
//
// The key ceremony can escrow a recovery bundle (typically the serialized
// share set) using Shamir's Secret Sharing. The bundle is split into one
// recovery share per administrator, requiring a threshold of them to
// reconstruct. Administrators prove possession of their share by signing it
// with a registered ECDSA or Ed25519 key; unsigned or unregistered
// submissions are rejected.
//
// The reconstructed bundle lives only in memory. Recovery shares are wiped
// as soon as the bundle is rebuilt.
package keyvault
