// Package auth holds the pure authorization predicates consumed by every
// engine operation before any mutation. Predicates never mutate state;
// malformed actor input simply evaluates to false, which callers surface
// as an unauthorized error.
package auth

import "fulfillment/internal/models"

// HasRole reports whether the actor carries the given role.
func HasRole(actor models.Actor, role models.Role) bool {
	if actor.ID == "" || !actor.Role.Valid() {
		return false
	}
	return actor.Role == role
}

// IsAdmin is a shorthand for HasRole(actor, RoleAdmin).
func IsAdmin(actor models.Actor) bool {
	return HasRole(actor, models.RoleAdmin)
}

// IsOrderOwner reports whether the actor is the customer who owns the order.
func IsOrderOwner(actor models.Actor, order *models.Order) bool {
	if actor.ID == "" || order == nil {
		return false
	}
	return actor.ID == order.CustomerID
}

// IsOrderSeller reports whether the actor is the seller attached to the order.
func IsOrderSeller(actor models.Actor, order *models.Order) bool {
	if actor.ID == "" || order == nil || order.SellerID == "" {
		return false
	}
	return HasRole(actor, models.RoleSeller) && actor.ID == order.SellerID
}

// IsReturnOwner reports whether the actor is the customer who filed the
// return request.
func IsReturnOwner(actor models.Actor, request *models.ReturnRequest) bool {
	if actor.ID == "" || request == nil {
		return false
	}
	return actor.ID == request.CustomerID
}
