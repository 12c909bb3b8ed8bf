package utils

import "strings"

// Permissions used by the API. Format is "resource:action".
const (
	PermCatalogWrite     = "catalog:write"
	PermOrderWrite       = "order:write"
	PermCrusherWrite     = "crusher:write"
	PermCrusherReconcile = "crusher:reconcile"
	PermReportRead       = "report:read"
)

// MatchesPermission reports whether a granted permission covers the
// required one. "*" grants everything, "crusher:*" grants every crusher
// action and "*:write" grants write on every resource.
func MatchesPermission(granted, required string) bool {
	if granted == required {
		return true
	}
	if granted == "*" || granted == "*:*" {
		return true
	}
	g := strings.SplitN(granted, ":", 2)
	r := strings.SplitN(required, ":", 2)
	if len(g) != 2 || len(r) != 2 {
		return false
	}
	return (g[0] == "*" || g[0] == r[0]) && (g[1] == "*" || g[1] == r[1])
}

// HasPermission checks a list of granted permissions.
func HasPermission(granted []string, required string) bool {
	for _, p := range granted {
		if MatchesPermission(p, required) {
			return true
		}
	}
	return false
}
