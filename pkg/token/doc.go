// Package token generates and hashes opaque session tokens and account
// passwords.
//
// Tokens are "blt_" followed by Base64 RawURL encoded random bytes. Only the
// SHA-256 hash of a token is ever kept by the issuer. Passwords are stored
// as bcrypt hashes.
package token
