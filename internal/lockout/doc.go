// Package lockout tracks failed credential attempts per (user, device)
// pair and enforces a timed lockout once the threshold is reached.
package lockout
