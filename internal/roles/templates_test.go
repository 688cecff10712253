package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netview-platform/authcore/internal/scope"
)

func TestGetRoleTemplates(t *testing.T) {
	tmpl := GetRoleTemplates()
	require.Len(t, tmpl, 4)

	for _, rt := range tmpl {
		assert.NotEmpty(t, rt.ID)
		assert.NotEmpty(t, rt.Label)
		assert.NotEmpty(t, rt.Description)
		assert.NotEmpty(t, rt.Scopes)

		for _, s := range rt.Scopes {
			_, err := scope.Parse(s)
			require.NoError(t, err, "role %s scope %q must parse", rt.ID, s)
		}
	}
}

func TestScopesForRole(t *testing.T) {
	t.Run("viewer holds probe read", func(t *testing.T) {
		held := ScopesForRole(RoleViewer)
		required := scope.MustParse("resource_group:acme:probe_group:prod:probes:read")
		assert.True(t, scope.HasPermission(held, required))
	})

	t.Run("viewer cannot write", func(t *testing.T) {
		held := ScopesForRole(RoleViewer)
		assert.False(t, scope.HasPermission(held, scope.MustParse("*:*:probes:write")))
	})

	t.Run("editor lacks alert write", func(t *testing.T) {
		held := ScopesForRole(RoleEditor)
		required := scope.MustParse("resource_group:acme:probe_group:*:alerts:write")
		assert.False(t, scope.HasPermission(held, required))
	})

	t.Run("tenant admin manages api keys", func(t *testing.T) {
		held := ScopesForRole(RoleTenantAdmin)
		assert.True(t, scope.HasPermission(held, scope.MustParse("*:*:api_keys:write")))
	})

	t.Run("unknown role", func(t *testing.T) {
		assert.Nil(t, ScopesForRole("superuser"))
	})
}

// TestPrivilegeOrder validates offline that the templates form a total
// privilege order: every scope of a less-privileged role is grantable by
// the next-more-privileged role's scope set.
func TestPrivilegeOrder(t *testing.T) {
	order := []string{RoleViewer, RoleEditor, RoleTenantAdmin, RolePlatformAdmin}

	for i := 0; i < len(order)-1; i++ {
		lower := ScopesForRole(order[i])
		upper := ScopesForRole(order[i+1])

		for _, s := range lower {
			assert.True(t, scope.HasPermission(upper, s),
				"%s scope %s not grantable by %s", order[i], s, order[i+1])
		}
	}
}

func TestPlatformFlag(t *testing.T) {
	assert.True(t, IsPlatform(RolePlatformAdmin))
	assert.False(t, IsPlatform(RoleTenantAdmin))
	assert.False(t, IsPlatform(RoleViewer))
	assert.False(t, IsPlatform("unknown"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(RoleViewer))
	assert.True(t, IsValid(RolePlatformAdmin))
	assert.False(t, IsValid("root"))
}
