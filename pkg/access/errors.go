// Package access provides an enumerable capability registry.
package access

import "errors"

var (
	// ErrUnauthorized indicates a role-gated call by a non-member.
	ErrUnauthorized = errors.New("unauthorized")
)
