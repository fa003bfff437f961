// Package middleware exposes HTTP middleware that authenticates requests
// against authcore sessions.
//
// # Guards
//
//   - [Guard] reads the credential for the given origin and resolves it.
//   - [RequireAPI] reads an Authorization bearer token.
//   - [RequireBrowser] reads the session cookie named in the engine config.
//
// Each guard records the client address and user agent on the request
// context, calls Engine.FindSession, and stores the resulting identity with
// authcore.WithIdentity. Rejections are written as problem documents.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Expiry,
// revocation and target filtering are decided by the engine.
package middleware
