package cache

import "github.com/manigandan-posana/vebops/internal/tenant"

// KeyCompanyProfile returns the per-tenant key for the seller's company profile.
func KeyCompanyProfile(tenantID string) string {
	return tenant.PrefixKey(tenantID, "company:profile")
}

// KeyKit returns the per-tenant key for a catalog kit.
func KeyKit(tenantID, kitID string) string {
	return tenant.PrefixKey(tenantID, "kit:"+kitID)
}
