package models

// Role identifies what kind of user an actor is. Roles are a flat enum
// rather than a type hierarchy; role-specific data lives on the actor.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an engine operation. Every mutating
// operation receives the actor explicitly as a parameter; the engine never
// reads identity from ambient or global state.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
