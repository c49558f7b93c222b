package recordings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTenant(t *testing.T) {
	cases := []struct {
		tags string
		want string
	}{
		{"", UnknownTenant},
		{"   ", UnknownTenant},
		{"flex", "Flex Mobile"},
		{"FLEX promo", "Flex Mobile"},
		{"IMTelecom billing", "IM Telecom"},
		{"im_telecom porting", "IM Telecom"},
		{"Tempo Wireless;retention", "Tempo Wireless"},
		{"NorthAmerican activation", "North American Local"},
		{"north american local", "North American Local"},
		// First rule wins.
		{"tempo flex", "Flex Mobile"},
		// No rule: the original string, unchanged.
		{"General Inquiry", "General Inquiry"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveTenant(tc.tags), "tags %q", tc.tags)
	}
}

func TestResolveTenant_Total(t *testing.T) {
	inputs := []string{"", "\x00", "ümlaut", "%", "_", "test", "a;b;c", "Flex\nMobile", "\t", "Demo"}
	for _, in := range inputs {
		got := ResolveTenant(in)
		assert.NotEmpty(t, got, "input %q", in)
	}
}

func TestTenants(t *testing.T) {
	names := Tenants()
	assert.Equal(t, []string{"Flex Mobile", "IM Telecom", "Tempo Wireless", "North American Local"}, names)
	for _, n := range names {
		assert.True(t, IsTenant(n))
	}
	assert.False(t, IsTenant("Acme"))
	assert.False(t, IsTenant(UnknownTenant))
}
