package assets

import (
	"fmt"
	"sync"

	"github.com/firattale/damn-vulnerable-defi/pkg/core"
)

// asset is a unique asset instance: owner plus optional transfer approval.
type asset struct {
	owner    core.Address
	approved core.Address
}

// Registry tracks uniquely identified assets. Ids are assigned
// sequentially and never reused: burning an id retires it forever. Mint and
// burn are reserved to the controller fixed at construction.
type Registry struct {
	controller core.Address

	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]asset
}

// Snapshot is an opaque copy of registry state for rollback.
type Snapshot struct {
	nextID uint64
	byID   map[uint64]asset
}

// NewRegistry creates an empty registry controlled by controller.
func NewRegistry(controller core.Address) *Registry {
	return &Registry{
		controller: controller,
		byID:       make(map[uint64]asset),
	}
}

// Mint creates a new asset owned by owner and returns its id. Only the
// controller may mint.
func (r *Registry) Mint(caller, owner core.Address) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.controller {
		return 0, fmt.Errorf("mint: %w", ErrUnauthorized)
	}
	id := r.nextID
	r.nextID++
	r.byID[id] = asset{owner: owner}
	return id, nil
}

// Burn destroys an asset. Only the controller may burn, and only assets it
// currently owns. The id is never reassigned.
func (r *Registry) Burn(caller core.Address, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.controller {
		return fmt.Errorf("burn %d: %w", id, ErrUnauthorized)
	}
	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("burn %d: %w", id, ErrUnknownAsset)
	}
	if a.owner != caller {
		return fmt.Errorf("burn %d: %w", id, ErrNotOwner)
	}
	delete(r.byID, id)
	return nil
}

// OwnerOf returns the current owner of id.
func (r *Registry) OwnerOf(id uint64) (core.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return core.ZeroAddress, fmt.Errorf("owner of %d: %w", id, ErrUnknownAsset)
	}
	return a.owner, nil
}

// Approve grants operator transfer rights over id. Only the owner may
// approve; the zero address clears any approval.
func (r *Registry) Approve(caller core.Address, id uint64, operator core.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("approve %d: %w", id, ErrUnknownAsset)
	}
	if a.owner != caller {
		return fmt.Errorf("approve %d: %w", id, ErrNotOwner)
	}
	a.approved = operator
	r.byID[id] = a
	return nil
}

// ApprovedFor returns the account holding transfer rights over id, or the
// zero address.
func (r *Registry) ApprovedFor(id uint64) (core.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return core.ZeroAddress, fmt.Errorf("approved for %d: %w", id, ErrUnknownAsset)
	}
	return a.approved, nil
}

// Transfer moves id from its owner to another account. The caller must be
// the owner or the approved operator. Any approval is cleared on transfer.
func (r *Registry) Transfer(caller core.Address, id uint64, from, to core.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("transfer %d: %w", id, ErrUnknownAsset)
	}
	if a.owner != from {
		return fmt.Errorf("transfer %d: %w", id, ErrNotOwner)
	}
	if caller != a.owner && caller != a.approved {
		return fmt.Errorf("transfer %d: %w", id, ErrNotApproved)
	}
	r.byID[id] = asset{owner: to}
	return nil
}

// Exists reports whether id currently exists.
func (r *Registry) Exists(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok
}

// Count returns the number of existing assets.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// TakeSnapshot captures registry state for a later Restore.
func (r *Registry) TakeSnapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := make(map[uint64]asset, len(r.byID))
	for id, a := range r.byID {
		byID[id] = a
	}
	return Snapshot{nextID: r.nextID, byID: byID}
}

// Restore resets registry state to a previously taken snapshot.
func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID = snap.nextID
	r.byID = make(map[uint64]asset, len(snap.byID))
	for id, a := range snap.byID {
		r.byID[id] = a
	}
}
