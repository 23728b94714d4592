package permission_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"library/model"
	"library/util/permission"
)

func TestAllowed(t *testing.T) {
	require.True(t, permission.Allowed(model.RoleAdmin, permission.ActionFineWaive))
	require.True(t, permission.Allowed(model.RoleLibrarian, permission.ActionCatalogWrite))
	require.True(t, permission.Allowed(model.RoleLibrarian, permission.ActionHoldFulfill))

	require.False(t, permission.Allowed(model.RoleMember, permission.ActionCatalogWrite))
	require.False(t, permission.Allowed(model.RoleMember, permission.ActionFineWaive))
	require.False(t, permission.Allowed(model.Role("ghost"), permission.ActionCatalogWrite))
}

func TestUnknownActionDenied(t *testing.T) {
	require.False(t, permission.Allowed(model.RoleAdmin, permission.Action("vault:open")))
}
