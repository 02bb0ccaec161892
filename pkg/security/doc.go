// Package security provides nonce generation and session key derivation.
//
// Sessions exchange a client nonce (CreateSession) and a server nonce
// (ActivateSession). From that pair HKDF-SHA256 derives directional signing
// and encryption keys. The keys are held by the session layer for message
// protection; nonce freshness is the caller's responsibility.
package security
