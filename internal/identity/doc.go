// Package identity manages user records, username hashing, and the
// verification tokens clients present on every authenticated request.
//
// Usernames are never stored in the clear. Each user carries an argon2id
// hash of their username under a per-user salt, plus a sha3-512 verification
// token handed back (RSA-encrypted) at registration. Authentication is a
// lookup of the presented token; a miss is not an error, it is an
// authentication failure.
package identity
