// Package auth provides authentication and authorization for shieldsync.
//
// # Credential Schemes
//
// Two incompatible schemes are accepted transparently:
//
//   - Server-side sessions, created when a federated OAuth2 login completes.
//     The session cookie resolves to a principal on every request.
//
//   - Self-issued bearer tokens, minted at login/registration and presented
//     as "Authorization: Bearer <token>". Tokens are HS256 JWTs carrying
//     {sub, role, iat, exp}; validation is pure signature/structure checking
//     plus an account-existence lookup, no session table.
//
// # Gateway
//
// Gateway.Middleware reconciles the two schemes per request: OAuth2
// handshake paths are bypassed, a live session wins over any bearer token,
// and token decode failures downgrade the request to anonymous instead of
// aborting it. At most one Principal is installed into the request context
// (WithPrincipal/PrincipalFromContext) before authorization runs.
//
// # Authorization
//
// Policy is a static longest-prefix route table (public, admin-only, or
// any-of the three roles; unlisted paths require authentication with any
// role). OwnershipGuard adds the resource level: notes are readable and
// writable only by their owner, with "absent" and "foreign-owned" reported
// as distinct outcomes.
//
// # Roles
//
// Exactly three canonical roles exist: "user", "admin", "federated". A role
// is assigned once at account creation or provisioning, and the role inside
// a token stays authoritative for that token's lifetime.
package auth
