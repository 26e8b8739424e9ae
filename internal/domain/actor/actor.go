// internal/domain/actor/actor.go
package actor

// Role is the actor's role within its tenant
type Role string

const (
	RoleOwner      Role = "owner"
	RolePharmacist Role = "pharmacist"
	RoleAttendant  Role = "attendant"
)

// Actor is an authenticated caller. Identity and permissions are decided upstream;
// the ledger only reads them.
type Actor struct {
	ID            uint   `json:"id"`
	Role          Role   `json:"role"`
	TenantID      uint   `json:"tenant_id"`
	OverrideStock bool   `json:"override_stock"`
	Name          string `json:"name,omitempty"`
}

// IsOwner reports whether the actor owns the pharmacy
func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// CanOverrideStock reports whether the actor may sell past available stock
func (a Actor) CanOverrideStock() bool {
	return a.IsOwner() || a.OverrideStock
}

// CanManageStock reports whether the actor may adjust stock or resolve cases
func (a Actor) CanManageStock() bool {
	return a.Role == RoleOwner || a.Role == RolePharmacist
}

// IsValidRole checks a role string
func IsValidRole(role Role) bool {
	switch role {
	case RoleOwner, RolePharmacist, RoleAttendant:
		return true
	}
	return false
}
