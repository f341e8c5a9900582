package policy

import (
	"testing"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allResources = []Resource{ResourceCompany, ResourceRegion, ResourceLocation, ResourceService, ResourceUser}
	mutations    = []Action{ActionCreate, ActionUpdate, ActionDelete}
)

func TestReadOnlyRolesCannotMutate(t *testing.T) {
	callers := []*models.Caller{
		nil,
		{UserID: 1, Role: models.RoleUser},
		{UserID: 2, Role: models.RoleCollector},
		{UserID: 3, Role: models.Role("superuser")},
		{UserID: 4, Role: ""},
	}

	for _, caller := range callers {
		for _, resource := range allResources {
			for _, action := range mutations {
				d := Decide(caller, action, resource, Target{ID: 1})
				assert.False(t, d.Allowed, "caller %+v must not %s %s", caller, action, resource)
				assert.NotEmpty(t, d.Reason)
			}
		}
	}
}

func TestPublicReads(t *testing.T) {
	callers := []*models.Caller{
		nil,
		{UserID: 1, Role: models.RoleUser},
		{UserID: 2, Role: models.RoleCollector},
		{UserID: 3, Role: models.RoleCompanyOwner},
		{UserID: 4, Role: models.RoleAdmin},
		{UserID: 5, Role: models.Role("intern")},
	}

	for _, caller := range callers {
		for _, resource := range []Resource{ResourceCompany, ResourceRegion, ResourceLocation, ResourceService} {
			for _, action := range []Action{ActionList, ActionGet} {
				d := Decide(caller, action, resource, Target{ID: 9})
				assert.True(t, d.Allowed, "caller %+v should %s %s", caller, action, resource)
				assert.Nil(t, d.Scope)
			}
		}
	}
}

func TestAdminAllowedEverything(t *testing.T) {
	admin := &models.Caller{UserID: 1, Role: models.RoleAdmin}

	for _, resource := range allResources {
		for _, action := range append([]Action{ActionList, ActionGet}, mutations...) {
			d := Decide(admin, action, resource, Target{ID: 77})
			assert.True(t, d.Allowed, "admin should %s %s", action, resource)
			assert.Nil(t, d.Scope)
		}
	}
}

func TestCompanyOwner(t *testing.T) {
	owner := &models.Caller{UserID: 10, Role: models.RoleCompanyOwner, CompanyID: utils.Ptr(uint(5))}

	tests := []struct {
		name      string
		action    Action
		resource  Resource
		target    Target
		allowed   bool
		wantScope *uint
	}{
		{name: "update own company", action: ActionUpdate, resource: ResourceCompany, target: Target{ID: 5}, allowed: true, wantScope: utils.Ptr(uint(5))},
		{name: "update other company", action: ActionUpdate, resource: ResourceCompany, target: Target{ID: 6}},
		{name: "read own company", action: ActionReadOwn, resource: ResourceCompany, allowed: true, wantScope: utils.Ptr(uint(5))},
		{name: "create company", action: ActionCreate, resource: ResourceCompany},
		{name: "delete own company", action: ActionDelete, resource: ResourceCompany, target: Target{ID: 5}},
		{name: "create region", action: ActionCreate, resource: ResourceRegion},
		{name: "update region", action: ActionUpdate, resource: ResourceRegion, target: Target{ID: 1}},
		{name: "delete service", action: ActionDelete, resource: ResourceService, target: Target{ID: 1}},
		{name: "create location", action: ActionCreate, resource: ResourceLocation},
		{name: "list users", action: ActionList, resource: ResourceUser},
		{name: "update another user", action: ActionUpdate, resource: ResourceUser, target: Target{ID: 11}},
		{name: "read self", action: ActionReadSelf, resource: ResourceUser, allowed: true, wantScope: utils.Ptr(uint(10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(owner, tt.action, tt.resource, tt.target)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
			assert.Equal(t, tt.wantScope, d.Scope)
		})
	}
}

func TestCompanyOwnerWithoutCompany(t *testing.T) {
	owner := &models.Caller{UserID: 10, Role: models.RoleCompanyOwner}

	assert.False(t, Decide(owner, ActionReadOwn, ResourceCompany, Target{}).Allowed)
	assert.False(t, Decide(owner, ActionUpdate, ResourceCompany, Target{ID: 0}).Allowed,
		"an unlinked owner must not match the zero id")
}

func TestReadOwnRequiresCompanyLink(t *testing.T) {
	for _, role := range []models.Role{models.RoleUser, models.RoleCollector} {
		d := Decide(&models.Caller{UserID: 1, Role: role, CompanyID: utils.Ptr(uint(3))}, ActionReadOwn, ResourceCompany, Target{})
		assert.False(t, d.Allowed, "role %s has no own company", role)
	}
	assert.False(t, Decide(nil, ActionReadOwn, ResourceCompany, Target{}).Allowed)
}

func TestSelfActions(t *testing.T) {
	for _, role := range []models.Role{models.RoleAdmin, models.RoleCompanyOwner, models.RoleUser, models.RoleCollector} {
		caller := &models.Caller{UserID: 42, Role: role}
		for _, action := range []Action{ActionReadSelf, ActionUpdateSelf} {
			d := Decide(caller, action, ResourceUser, Target{})
			require.True(t, d.Allowed, "role %s should %s", role, action)
			require.NotNil(t, d.Scope)
			assert.Equal(t, uint(42), *d.Scope)
		}
	}

	assert.False(t, Decide(nil, ActionReadSelf, ResourceUser, Target{}).Allowed)
	assert.False(t, Decide(&models.Caller{UserID: 1, Role: "ghost"}, ActionUpdateSelf, ResourceUser, Target{}).Allowed)
}

func TestUsersAreNotPublic(t *testing.T) {
	for _, action := range []Action{ActionList, ActionGet} {
		assert.False(t, Decide(nil, action, ResourceUser, Target{ID: 1}).Allowed)
		assert.False(t, Decide(&models.Caller{UserID: 2, Role: models.RoleUser}, action, ResourceUser, Target{ID: 1}).Allowed)
	}
}

func TestMutating(t *testing.T) {
	assert.True(t, ActionCreate.Mutating())
	assert.True(t, ActionUpdateSelf.Mutating())
	assert.False(t, ActionList.Mutating())
	assert.False(t, ActionReadOwn.Mutating())
}
