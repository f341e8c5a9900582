// Package policy decides who may do what in the directory. Decide is a pure
// function of the caller, the action and the target; it performs no I/O and
// is called at the top of every mutation before anything is written.
package policy

import (
	"fmt"

	"github.com/gartstein/directory/internal/directory/models"
)

// Action is an operation a caller asks to perform.
type Action string

const (
	ActionList   Action = "list"
	ActionGet    Action = "get"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionReadOwn reads the caller's own company, keyed off the caller
	// rather than a requested id.
	ActionReadOwn Action = "read_own"
	// ActionReadSelf and ActionUpdateSelf act on the caller's own account.
	ActionReadSelf   Action = "read_self"
	ActionUpdateSelf Action = "update_self"
)

// Mutating reports whether a changes state.
func (a Action) Mutating() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionUpdateSelf:
		return true
	}
	return false
}

// Resource is an entity type.
type Resource string

const (
	ResourceCompany  Resource = "company"
	ResourceRegion   Resource = "region"
	ResourceLocation Resource = "location"
	ResourceService  Resource = "service"
	ResourceUser     Resource = "user"
)

// public lists the resources anyone may list and get.
var public = map[Resource]bool{
	ResourceCompany:  true,
	ResourceRegion:   true,
	ResourceLocation: true,
	ResourceService:  true,
}

// Target identifies the record an action applies to. ID is zero for create
// and list.
type Target struct {
	ID uint
}

// Decision is the outcome of Decide. When Allowed is true and Scope is not
// nil, the caller may only touch the record with that id.
type Decision struct {
	Allowed bool
	Scope   *uint
	Reason  string
}

// Allow grants the action, optionally scoped to one record id.
func Allow(scope *uint) Decision {
	return Decision{Allowed: true, Scope: scope}
}

// Deny refuses the action.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Decide applies the access rules in priority order: anonymous callers,
// then admin, company_owner, user and collector. Unknown roles are denied.
func Decide(caller *models.Caller, action Action, resource Resource, target Target) Decision {
	publicRead := (action == ActionList || action == ActionGet) && public[resource]

	if caller == nil {
		if publicRead {
			return Allow(nil)
		}
		return Deny("authentication required")
	}

	switch caller.Role {
	case models.RoleAdmin:
		if self, ok := selfScoped(caller, action, resource); ok {
			return self
		}
		return Allow(nil)

	case models.RoleCompanyOwner:
		if publicRead {
			return Allow(nil)
		}
		if self, ok := selfScoped(caller, action, resource); ok {
			return self
		}
		if resource == ResourceCompany {
			switch action {
			case ActionReadOwn:
				return ownCompany(caller)
			case ActionUpdate:
				if caller.CompanyID != nil && *caller.CompanyID == target.ID {
					return Allow(caller.CompanyID)
				}
				return Deny("company owners may only update their own company")
			}
		}
		return denyRole(caller.Role, action, resource)

	case models.RoleUser, models.RoleCollector:
		if publicRead {
			return Allow(nil)
		}
		if self, ok := selfScoped(caller, action, resource); ok {
			return self
		}
		return denyRole(caller.Role, action, resource)

	default:
		if publicRead {
			return Allow(nil)
		}
		return Deny(fmt.Sprintf("unknown role %q", caller.Role))
	}
}

// selfScoped handles the actions on the caller's own account, which every
// known role may perform.
func selfScoped(caller *models.Caller, action Action, resource Resource) (Decision, bool) {
	if resource != ResourceUser || (action != ActionReadSelf && action != ActionUpdateSelf) {
		return Decision{}, false
	}
	id := caller.UserID
	return Allow(&id), true
}

func ownCompany(caller *models.Caller) Decision {
	if caller.CompanyID == nil {
		return Deny("caller is not linked to a company")
	}
	return Allow(caller.CompanyID)
}

func denyRole(role models.Role, action Action, resource Resource) Decision {
	return Deny(fmt.Sprintf("role %s may not %s %s", role, action, resource))
}
