// Package jwt issues and validates the signed bearer tokens used by the
// engine: access, refresh and kiosk tokens, distinguished by a mandatory
// "typ" claim that validation always checks.
package jwt
