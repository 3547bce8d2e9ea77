// Package password provides argon2id hashing and constant-time
// verification for passwords and kiosk PINs, including a fixed-cost
// dummy comparison for the user-not-found branch.
package password
