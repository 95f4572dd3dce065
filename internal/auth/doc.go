// Package auth provides API authentication for the actuation daemon.
//
// The daemon has a single operator credential:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Short-lived HS256 JWT access tokens, validated by signature only
//
// The password hash is produced offline with HashPassword and stored in
// configuration; the plaintext never touches disk.
package auth
