// Package permission implements the static role/action policy table.
// Evaluation is pure and total: every (role, action) pair has an answer,
// and unknown roles or actions are always denied.
package permission

import "errors"

// ErrDenied is returned by gated operations when the actor's role does
// not cover the requested action.
var ErrDenied = errors.New("permission denied")

// Role identifies the actor type attached to a user account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

// Action identifies an operation gated by the policy table.
type Action string

const (
	ActionViewProducts   Action = "products.view"
	ActionEditProducts   Action = "products.edit"
	ActionDeleteProducts Action = "products.delete"
	ActionManageOrders   Action = "orders.manage"
	ActionCreateOrder    Action = "orders.create"
	ActionViewOwnOrders  Action = "orders.view_own"
	ActionProcessSales   Action = "sales.process"
	ActionManageUsers    Action = "users.manage"
	ActionViewAnalytics  Action = "analytics.view"
	ActionSystemSettings Action = "settings.access"
)

// policy maps each action to the roles permitted to perform it.
var policy = map[Action][]Role{
	ActionViewProducts:   {RoleAdmin, RoleEmployee, RoleCustomer},
	ActionEditProducts:   {RoleAdmin, RoleEmployee},
	ActionDeleteProducts: {RoleAdmin},
	ActionManageOrders:   {RoleAdmin, RoleEmployee},
	ActionCreateOrder:    {RoleCustomer},
	ActionViewOwnOrders:  {RoleAdmin, RoleEmployee, RoleCustomer},
	ActionProcessSales:   {RoleAdmin, RoleEmployee},
	ActionManageUsers:    {RoleAdmin},
	ActionViewAnalytics:  {RoleAdmin},
	ActionSystemSettings: {RoleAdmin},
}

// IsAllowed reports whether role may perform action.
func IsAllowed(role Role, action Action) bool {
	allowed, exists := policy[action]
	if !exists {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Roles returns all known roles.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEmployee, RoleCustomer}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleCustomer:
		return true
	}
	return false
}
