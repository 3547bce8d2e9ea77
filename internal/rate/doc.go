// Package rate provides pluggable fixed-window request counting keyed
// by lower-cased identifier, with an in-process implementation for
// single instances and a Redis implementation for shared deployments.
package rate
