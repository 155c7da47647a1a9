package sqlassets

import _ "embed"

//go:embed schema/tenants.sql
var TenantsSQL string

//go:embed schema/profiles.sql
var ProfilesSQL string

//go:embed schema/memberships.sql
var MembershipsSQL string

//go:embed schema/catalog.sql
var CatalogSQL string

// All returns the schema files in dependency order.
func All() []string {
	return []string{TenantsSQL, ProfilesSQL, MembershipsSQL, CatalogSQL}
}
