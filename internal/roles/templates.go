// Package roles defines the platform role templates: named bundles of
// default scopes assigned at account provisioning and offered as the
// starting point when issuing API keys.
package roles

import (
	"github.com/netview-platform/authcore/internal/scope"
)

// Role identifiers, least to most privileged.
const (
	RoleViewer        = "viewer"
	RoleEditor        = "editor"
	RoleTenantAdmin   = "tenant_admin"
	RolePlatformAdmin = "platform_admin"
)

// Template is a named default scope bundle for a role.
type Template struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"`
	Platform    bool     `json:"platform"`
}

var templates = []Template{
	{
		ID:          RoleViewer,
		Label:       "Viewer",
		Description: "Read-only access to probes, alerts, resources, and reports",
		Scopes: []string{
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceProbes, scope.ActionRead),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceAlerts, scope.ActionRead),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceResources, scope.ActionRead),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceReports, scope.ActionRead),
		},
	},
	{
		ID:          RoleEditor,
		Label:       "Editor",
		Description: "Manage probes, resources, and reports; alerts remain read-only",
		Scopes: []string{
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceProbes, scope.ActionRead),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceProbes, scope.ActionWrite),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceProbes, scope.ActionExecute),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceAlerts, scope.ActionRead),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceResources, scope.ActionRead),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceResources, scope.ActionWrite),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceReports, scope.ActionRead),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceReports, scope.ActionWrite),
		},
	},
	{
		ID:          RoleTenantAdmin,
		Label:       "Tenant Admin",
		Description: "Full control over tenant resources, users, and API keys",
		Scopes: []string{
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceProbes, scope.Wildcard),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceAlerts, scope.Wildcard),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceResources, scope.Wildcard),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceReports, scope.Wildcard),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceGateways, scope.Wildcard),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceUsers, scope.Wildcard),
			scope.Build(scope.Wildcard, scope.Wildcard, scope.ResourceAPIKeys, scope.Wildcard),
		},
	},
	{
		ID:          RolePlatformAdmin,
		Label:       "Platform Admin",
		Description: "Unrestricted access across all tenants",
		Scopes: []string{
			scope.Build(scope.Wildcard, scope.Wildcard, scope.Wildcard, scope.Wildcard),
		},
		Platform: true,
	},
}

// GetRoleTemplates returns all role templates, least to most privileged.
func GetRoleTemplates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// IsValid reports whether the role id names a known template.
func IsValid(role string) bool {
	for _, t := range templates {
		if t.ID == role {
			return true
		}
	}
	return false
}

// IsPlatform reports whether the role carries platform-wide privileges.
func IsPlatform(role string) bool {
	for _, t := range templates {
		if t.ID == role {
			return t.Platform
		}
	}
	return false
}

// ScopesForRole returns the parsed canonical scope set for a role, or
// nil for an unknown role.
func ScopesForRole(role string) []scope.Scope {
	for _, t := range templates {
		if t.ID != role {
			continue
		}
		scopes, err := scope.ParseSet(t.Scopes)
		if err != nil {
			// Templates are static literals; a parse failure is a
			// programming error caught by the offline validation test.
			panic(err)
		}
		return scopes
	}
	return nil
}
