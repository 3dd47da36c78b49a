// Package main (cmd/attestor-admin) implements the administrator client for
// the coordinator's key ceremony and vault recovery.
//
// The admin client provides command-line tools for running the offline key
// ceremony that produces the sealed share bundle, and for unlocking a
// coordinator that was started in recovery mode.
//
// Commands:
//
//	status                 - Query the coordinator's vault unlock state
//	generate-admin         - Generate a new administrator key pair
//	generate-admins-config - Create admins.json with the registered admin public keys
//	keygen                 - Run the offline key ceremony for an attestor roster
//	submit-share           - Submit this admin's recovery share to unlock the vault
//
// The keygen ceremony generates a fresh threshold signing scheme, seals one
// key share per attestor under a random passphrase, and splits that
// passphrase into Shamir recovery shares, one per configured administrator.
// The passphrase itself is printed once and never stored; an operator either
// keeps it for direct unlocking or discards it and relies on the recovery
// shares.
//
// Each administrator must be registered with the coordinator by including
// their public key in the admins.json configuration. Administrators
// authenticate using ECDSA signatures created with their private keys, and
// every submitted share is additionally verified against the registered
// public key before it counts toward the recovery threshold.
//
// Example workflow:
//
//  1. Generate an admin keypair for each administrator:
//     attestor-admin generate-admin --admin-privkey-file=admin1-private.pem --admin-pubkey-file=admin1-public.pem
//
//  2. Create the admin configuration file:
//     attestor-admin generate-admins-config --admin-pubkey-files=admin1-public.pem,admin2-public.pem
//
//  3. Run the key ceremony for a 2-of-3 attestor roster:
//     attestor-admin keygen --attestors-file=attestors.json --threshold=2 --recovery-threshold=2
//
//  4. Distribute recovery-share-N.json to each administrator out of band.
//
//  5. When the coordinator restarts in recovery mode, each admin submits
//     their share:
//     attestor-admin submit-share --recovery-share-file=recovery-share-1.json
package main
