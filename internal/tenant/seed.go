package tenant

import (
	"os"
	"strings"
)

const defaultFollowupTemplate = "followup_1"

// SeedFromEnv builds a registry from provisioning env vars. Real provisioning
// lives in the admin service; this covers single-tenant and local setups.
//
// A demo WhatsApp tenant with key "123456" is always present outside
// production so webhook payloads from provider test consoles resolve.
func SeedFromEnv(production bool) *Registry {
	r := NewRegistry()

	if wa := strings.TrimSpace(os.Getenv("WA_PHONE_NUMBER_ID")); wa != "" {
		r.Register(Tenant{
			ID:               wa,
			WAPhoneNumberID:  wa,
			FollowupTemplate: defaultFollowupTemplate,
		})
	}
	if ig := strings.TrimSpace(os.Getenv("IG_PAGE_ID")); ig != "" {
		r.Register(Tenant{
			ID:       ig,
			IGPageID: ig,
		})
	}

	if !production {
		r.Register(Tenant{
			ID:               "123456",
			WAPhoneNumberID:  "123456",
			FollowupTemplate: defaultFollowupTemplate,
		})
	}
	return r
}
