// Package access provides an enumerable capability registry.
package access

import (
	"fmt"
	"sync"

	"github.com/firattale/damn-vulnerable-defi/pkg/core"
)

// Registry is a minimal enumerable role table. Role membership is
// idempotent and enumeration preserves insertion order, so downstream
// consumers that iterate members see a reproducible sequence.
type Registry struct {
	mu      sync.RWMutex
	admin   core.Address
	members map[core.Role][]core.Address
}

// NewRegistry creates a registry administered by admin. Only admin may
// grant or revoke roles; the admin is fixed for the registry's lifetime.
func NewRegistry(admin core.Address) *Registry {
	return &Registry{
		admin:   admin,
		members: make(map[core.Role][]core.Address),
	}
}

// Admin returns the administering account.
func (r *Registry) Admin() core.Address {
	return r.admin
}

// Grant adds account to role's member set. Granting an account a role it
// already holds is a no-op.
func (r *Registry) Grant(caller core.Address, role core.Role, account core.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin {
		return fmt.Errorf("grant %s: %w", role, ErrUnauthorized)
	}
	for _, member := range r.members[role] {
		if member == account {
			return nil
		}
	}
	r.members[role] = append(r.members[role], account)
	return nil
}

// Revoke removes account from role's member set. Revoking an absent
// account is a no-op.
func (r *Registry) Revoke(caller core.Address, role core.Role, account core.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin {
		return fmt.Errorf("revoke %s: %w", role, ErrUnauthorized)
	}
	list := r.members[role]
	for i, member := range list {
		if member == account {
			r.members[role] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasRole reports whether account holds role.
func (r *Registry) HasRole(role core.Role, account core.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, member := range r.members[role] {
		if member == account {
			return true
		}
	}
	return false
}

// Members returns role's members in insertion order, without duplicates.
func (r *Registry) Members(role core.Role) []core.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Address, len(r.members[role]))
	copy(out, r.members[role])
	return out
}

// MemberCount returns the number of accounts holding role.
func (r *Registry) MemberCount(role core.Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[role])
}
