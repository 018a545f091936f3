// Package core provides the shared domain types used by every component:
// account addresses, the fixed-point price scale and observable events.
package core

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Address identifies an account. Addresses are opaque strings; equality is
// the only operation components rely on.
type Address string

// ZeroAddress is the absence of an account (unset approval, burned asset).
const ZeroAddress Address = ""

// NewAddress generates a fresh unique account address.
func NewAddress() Address {
	return Address(uuid.NewString())
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// Scale is the fixed decimal factor applied to prices: smallest currency
// units per whole asset unit are scaled by 1e18.
var Scale = decimal.New(1, 18)

// Role names a capability in the access registry.
type Role string

// FloorDiv divides a by b with integer division, floor toward zero.
// Price and amount values are non-negative integers at Scale, so
// truncation and floor coincide.
func FloorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}
