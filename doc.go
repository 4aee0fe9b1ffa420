// Package iopps implements the session, authorization, and credential
// primitives of the IOPPS community platform backend.
//
// Credentials:
//   - SessionClaims is the claim set carried by a session credential. Tokens
//     are minted first-party (HS256, TokenService) or by the identity
//     provider (RS256, ProviderValidator verifying against the provider's
//     JWKS). Verifier composes a TokenValidator with bearer-header
//     extraction and is the authoritative check used by API handlers;
//     VerifyAdmin layers the admin claim gate on top.
//   - DecodeSessionUnverified is the advisory fast path used by the edge
//     session guard: it reads structure and expiry only and never checks the
//     signature. Anything consequential must go through Verifier.
//
// Entity lifecycle jobs live in the lifecycle subpackage, notification
// preferences and the unsubscribe token codec in notify, and the HTTP
// surface that exposes them in server.
package iopps
