// Package assets provides a registry of uniquely identified assets.
package assets

import "errors"

var (
	// ErrUnauthorized indicates a mint or burn by an account other than the controller.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnknownAsset indicates an id that was never minted or has been burned.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrNotOwner indicates a call on an asset by an account that does not own it.
	ErrNotOwner = errors.New("caller does not own asset")
	// ErrNotApproved indicates a transfer without transfer rights over the asset.
	ErrNotApproved = errors.New("caller not approved for asset")
)
