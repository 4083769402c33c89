// Package keystore persists client public keys submitted through the key
// exchange endpoint.
//
// Each owner holds at most one live key record. Submitting a new key
// atomically replaces the previous record and stamps a fresh expiry;
// expired records are purged during the same transaction so readers never
// observe a stale key alongside its replacement.
package keystore
