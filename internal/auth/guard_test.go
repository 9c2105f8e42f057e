package auth_test

import (
	"testing"

	"fulfillment/internal/auth"
	"fulfillment/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestHasRole(t *testing.T) {
	admin := models.Actor{ID: "a1", Role: models.RoleAdmin}

	assert.True(t, auth.HasRole(admin, models.RoleAdmin))
	assert.False(t, auth.HasRole(admin, models.RoleCustomer))

	// Malformed actors never pass.
	assert.False(t, auth.HasRole(models.Actor{}, models.RoleAdmin))
	assert.False(t, auth.HasRole(models.Actor{ID: "a1"}, models.RoleAdmin))
	assert.False(t, auth.HasRole(models.Actor{ID: "a1", Role: "SUPERUSER"}, models.RoleAdmin))
	assert.False(t, auth.HasRole(models.Actor{Role: models.RoleAdmin}, models.RoleAdmin))
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, auth.IsAdmin(models.Actor{ID: "a1", Role: models.RoleAdmin}))
	assert.False(t, auth.IsAdmin(models.Actor{ID: "c1", Role: models.RoleCustomer}))
	assert.False(t, auth.IsAdmin(models.Actor{}))
}

func TestIsOrderOwner(t *testing.T) {
	order := &models.Order{ID: "o1", CustomerID: "c1"}

	assert.True(t, auth.IsOrderOwner(models.Actor{ID: "c1", Role: models.RoleCustomer}, order))
	assert.False(t, auth.IsOrderOwner(models.Actor{ID: "c2", Role: models.RoleCustomer}, order))
	assert.False(t, auth.IsOrderOwner(models.Actor{}, order))
	assert.False(t, auth.IsOrderOwner(models.Actor{ID: "c1"}, nil))
}

func TestIsOrderSeller(t *testing.T) {
	order := &models.Order{ID: "o1", CustomerID: "c1", SellerID: "s1"}

	assert.True(t, auth.IsOrderSeller(models.Actor{ID: "s1", Role: models.RoleSeller}, order))
	assert.False(t, auth.IsOrderSeller(models.Actor{ID: "s2", Role: models.RoleSeller}, order))
	// Matching id without the seller role is not enough.
	assert.False(t, auth.IsOrderSeller(models.Actor{ID: "s1", Role: models.RoleCustomer}, order))
	// Orders without a seller have no seller-side access.
	assert.False(t, auth.IsOrderSeller(models.Actor{ID: "s1", Role: models.RoleSeller}, &models.Order{ID: "o2", CustomerID: "c1"}))
	assert.False(t, auth.IsOrderSeller(models.Actor{ID: "s1", Role: models.RoleSeller}, nil))
}

func TestIsReturnOwner(t *testing.T) {
	request := &models.ReturnRequest{ID: "r1", CustomerID: "c1"}

	assert.True(t, auth.IsReturnOwner(models.Actor{ID: "c1", Role: models.RoleCustomer}, request))
	assert.False(t, auth.IsReturnOwner(models.Actor{ID: "c2", Role: models.RoleCustomer}, request))
	assert.False(t, auth.IsReturnOwner(models.Actor{}, request))
	assert.False(t, auth.IsReturnOwner(models.Actor{ID: "c1"}, nil))
}
