// Package internal holds engine-private helpers for identifier and
// token generation.
package internal
