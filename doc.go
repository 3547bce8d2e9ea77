// Package authcore implements credential verification and session
// lifecycle management: password logins, kiosk PIN logins at trusted
// devices, refresh token rotation, password resets and elevated-access
// re-verification.
//
// The entry point is the Builder:
//
//	engine, err := authcore.New().
//		WithSecret(secret).
//		WithUserProvider(users).
//		Build()
//
// Identity records live in an external store behind the UserProvider
// interface; the engine owns only session state. Rate limiting and
// lockout tracking run in-process by default and move to Redis with
// WithRedis for multi-instance deployments; refresh sessions, reset
// tokens and device registrations persist to bbolt with WithBolt.
//
// Error values deliberately collapse failure detail: a caller of Login
// cannot distinguish an unknown email from a wrong password, and a
// caller of Refresh cannot tell which validation step rejected the
// token. The distinct states are recorded in audit events instead.
package authcore
