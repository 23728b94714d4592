// Package permission maps (role, action) to an allow decision in one table
// instead of scattering role conditionals through handlers.
package permission

import "library/model"

type Action string

const (
	ActionCatalogWrite  Action = "catalog:write"
	ActionCatalogDelete Action = "catalog:delete"
	ActionLoanViewAll   Action = "loan:view_all"
	ActionLoanReturnAny Action = "loan:return_any"
	ActionHoldViewAll   Action = "hold:view_all"
	ActionHoldFulfill   Action = "hold:fulfill"
	ActionFineViewAll   Action = "fine:view_all"
	ActionFineWaive     Action = "fine:waive"
	ActionFineCharge    Action = "fine:charge"
	ActionMemberManage  Action = "member:manage"
	ActionStatsView     Action = "stats:view"
)

var staffActions = map[Action]bool{
	ActionCatalogWrite:  true,
	ActionCatalogDelete: true,
	ActionLoanViewAll:   true,
	ActionLoanReturnAny: true,
	ActionHoldViewAll:   true,
	ActionHoldFulfill:   true,
	ActionFineViewAll:   true,
	ActionFineWaive:     true,
	ActionFineCharge:    true,
	ActionMemberManage:  true,
	ActionStatsView:     true,
}

// Allowed reports whether role may perform action. Librarians and admins
// share the staff set; members get none of it.
func Allowed(role model.Role, action Action) bool {
	switch role {
	case model.RoleAdmin, model.RoleLibrarian:
		return staffActions[action]
	default:
		return false
	}
}
