package scope

// Resource type identifiers used across the platform.
const (
	ResourceProbes    = "probes"
	ResourceAlerts    = "alerts"
	ResourceResources = "resources"
	ResourceReports   = "reports"
	ResourceGateways  = "gateways"
	ResourceUsers     = "users"
	ResourceAPIKeys   = "api_keys"
)

// Actions recognized by the platform.
const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionDelete  = "delete"
	ActionExecute = "execute"
)

// CatalogEntry describes one grantable scope for credential-creation
// flows and the management UI.
type CatalogEntry struct {
	Scope       string `json:"scope"`
	Description string `json:"description"`
}

// catalog is the single source of truth for which scopes exist. Entries
// use the wildcard group positions; creation flows substitute concrete
// groups where the credential should be narrower.
var catalog = []CatalogEntry{
	{Build(Wildcard, Wildcard, ResourceProbes, ActionRead), "View probes and their check results"},
	{Build(Wildcard, Wildcard, ResourceProbes, ActionWrite), "Create and modify probes"},
	{Build(Wildcard, Wildcard, ResourceProbes, ActionDelete), "Delete probes"},
	{Build(Wildcard, Wildcard, ResourceProbes, ActionExecute), "Trigger manual probe executions"},
	{Build(Wildcard, Wildcard, ResourceAlerts, ActionRead), "View alert rules and alert history"},
	{Build(Wildcard, Wildcard, ResourceAlerts, ActionWrite), "Create and modify alert rules"},
	{Build(Wildcard, Wildcard, ResourceAlerts, ActionDelete), "Delete alert rules"},
	{Build(Wildcard, Wildcard, ResourceResources, ActionRead), "View monitored resources"},
	{Build(Wildcard, Wildcard, ResourceResources, ActionWrite), "Register and modify monitored resources"},
	{Build(Wildcard, Wildcard, ResourceResources, ActionDelete), "Remove monitored resources"},
	{Build(Wildcard, Wildcard, ResourceReports, ActionRead), "View availability and latency reports"},
	{Build(Wildcard, Wildcard, ResourceReports, ActionWrite), "Create and schedule reports"},
	{Build(Wildcard, Wildcard, ResourceGateways, ActionRead), "View the probe gateway fleet and its heartbeats"},
	{Build(Wildcard, Wildcard, ResourceGateways, ActionWrite), "Register and configure probe gateways"},
	{Build(Wildcard, Wildcard, ResourceUsers, ActionRead), "View users in the tenant"},
	{Build(Wildcard, Wildcard, ResourceUsers, ActionWrite), "Invite and modify users"},
	{Build(Wildcard, Wildcard, ResourceAPIKeys, ActionRead), "View API keys (metadata only)"},
	{Build(Wildcard, Wildcard, ResourceAPIKeys, ActionWrite), "Create, modify, and revoke API keys"},
	{Build(Wildcard, Wildcard, ResourceAPIKeys, ActionDelete), "Permanently delete API keys"},
}

// Catalog returns the available-scopes catalog. The returned slice is a
// copy; callers may not mutate the catalog.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// IsKnown reports whether the scope's resource/action pair is listed in
// the catalog. Scopes with a wildcard resource or action are grants over
// catalog entries rather than entries themselves and are always known.
func IsKnown(s Scope) bool {
	if s.Resource.IsWildcard() || s.Action.IsWildcard() {
		return true
	}
	want := Build(Wildcard, Wildcard, s.Resource, s.Action)
	for _, e := range catalog {
		if e.Scope == want {
			return true
		}
	}
	return false
}
