package recordings

import "strings"

// UnknownTenant is reported for records with no tags at all.
const UnknownTenant = "Unknown"

type tenantRule struct {
	name       string
	substrings []string // lower case
}

// Rules are evaluated in order; the first rule with a matching substring wins.
var tenantRules = []tenantRule{
	{name: "Flex Mobile", substrings: []string{"flex"}},
	{name: "IM Telecom", substrings: []string{"im telecom", "imtelecom", "im_telecom"}},
	{name: "Tempo Wireless", substrings: []string{"tempo"}},
	{name: "North American Local", substrings: []string{"north american local", "northamerican"}},
}

// ResolveTenant maps a free-text tag string to a tenant name.
// Empty tags give UnknownTenant; tags that match no rule are returned unchanged.
func ResolveTenant(tags string) string {
	if strings.TrimSpace(tags) == "" {
		return UnknownTenant
	}
	lower := strings.ToLower(tags)
	for _, r := range tenantRules {
		for _, s := range r.substrings {
			if strings.Contains(lower, s) {
				return r.name
			}
		}
	}
	return tags
}

// Tenants lists the recognized tenant names in rule order.
func Tenants() []string {
	out := make([]string, len(tenantRules))
	for i, r := range tenantRules {
		out[i] = r.name
	}
	return out
}

// IsTenant reports whether name is a recognized tenant.
func IsTenant(name string) bool {
	_, ok := tenantRuleIndex(name)
	return ok
}

func tenantRuleIndex(name string) (int, bool) {
	for i, r := range tenantRules {
		if r.name == name {
			return i, true
		}
	}
	return 0, false
}
