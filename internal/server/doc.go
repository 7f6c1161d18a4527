// Package server wires the shieldsync HTTP surface: registration, login,
// logout, profile, admin user management, notes, extension statistics, and
// the OAuth2 handshake endpoints.
//
// Every request passes through the middleware chain in order: security
// headers, CORS, the authentication gateway (internal/auth.Gateway), and
// the route authorization policy. Handlers therefore run with at most one
// Principal installed and with route-level access already decided; they only
// add resource-level checks (note ownership) on top.
package server
