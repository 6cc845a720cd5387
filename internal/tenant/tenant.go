package tenant

import (
	"sync"

	"leadinbox/internal/channel"
)

// Tenant is a business account scoped to one or more channel identities.
// Identity is immutable after provisioning; channel config (templates) may
// change.
type Tenant struct {
	ID string
	// WAPhoneNumberID is the WhatsApp Cloud API phone-number id, empty when
	// the tenant has no WhatsApp presence.
	WAPhoneNumberID string
	// IGPageID is the Instagram page id, empty when the tenant has no
	// Instagram presence.
	IGPageID string
	// FollowupTemplate names the pre-approved template used for sends outside
	// the messaging window.
	FollowupTemplate string
}

// ChannelKey returns the external identifier the provider uses for this
// tenant on the given channel.
func (t Tenant) ChannelKey(ch channel.Channel) string {
	switch ch {
	case channel.WhatsApp:
		return t.WAPhoneNumberID
	case channel.Instagram:
		return t.IGPageID
	default:
		return ""
	}
}

// Registry resolves channel-specific tenant keys to tenants. It is read-mostly:
// every inbound event performs a lookup, provisioning writes are rare.
type Registry struct {
	mu      sync.RWMutex
	tenants []Tenant
}

func NewRegistry(tenants ...Tenant) *Registry {
	r := &Registry{}
	for _, t := range tenants {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tenant by id.
func (r *Registry) Register(t Tenant) {
	if t.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tenants {
		if r.tenants[i].ID == t.ID {
			r.tenants[i] = t
			return
		}
	}
	r.tenants = append(r.tenants, t)
}

// Resolve maps a tenant key to a tenant, checking both the WhatsApp and
// Instagram identifiers. A miss is an expected outcome (unregistered or test
// traffic), not an error: callers acknowledge the event and persist nothing.
func (r *Registry) Resolve(key string) (Tenant, bool) {
	if key == "" {
		return Tenant{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.WAPhoneNumberID == key || t.IGPageID == key {
			return t, true
		}
	}
	return Tenant{}, false
}

// Count returns the number of registered tenants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tenants)
}
