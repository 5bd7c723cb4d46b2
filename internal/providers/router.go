// Package providers hosts the provider router and the per-provider client
// packages beneath it.
package providers

import (
	"strings"

	"genserver/internal/domain/modelcfg"
)

// Candidate is one (provider, provider-specific model id) pair to try.
type Candidate struct {
	Provider string
	ModelID  string
}

// Router resolves the ordered provider sequence for a request. Providers
// without credentials never appear in a sequence.
type Router struct {
	priority   []string
	fallback   string
	configured func(provider string) bool
	catalog    *modelcfg.Registry
}

// NewRouter builds a router from the static priority order, the designated
// fallback provider and a credentials predicate.
func NewRouter(priority []string, fallback string, configured func(provider string) bool, catalog *modelcfg.Registry) *Router {
	return &Router{
		priority:   priority,
		fallback:   fallback,
		configured: configured,
		catalog:    catalog,
	}
}

// ResolveCandidates returns the providers to try in order, each with the
// model id resolved for that provider.
//
// With a configured preferred provider the sequence is the preference
// followed by the designated fallback provider. A preference for an
// unconfigured provider is ignored and the full configured priority list is
// used instead. An empty result means no provider is configured at all and
// the caller must fail hard.
func (r *Router) ResolveCandidates(preferred, logicalModel string) []Candidate {
	sequence := r.resolveProviderSequence(preferred)
	candidates := make([]Candidate, 0, len(sequence))
	for _, provider := range sequence {
		candidates = append(candidates, Candidate{
			Provider: provider,
			ModelID:  r.resolveModelID(provider, logicalModel),
		})
	}
	return candidates
}

func (r *Router) resolveProviderSequence(preferred string) []string {
	preferred = strings.ToLower(strings.TrimSpace(preferred))

	if preferred != "" && r.isConfigured(preferred) {
		sequence := []string{preferred}
		if r.fallback != "" && r.fallback != preferred && r.isConfigured(r.fallback) {
			sequence = append(sequence, r.fallback)
		}
		return sequence
	}

	var sequence []string
	for _, provider := range r.priority {
		if r.isConfigured(provider) {
			sequence = append(sequence, provider)
		}
	}
	return sequence
}

// resolveModelID maps a logical model name to the provider's own id, passing
// the name through unchanged when no mapping exists.
func (r *Router) resolveModelID(provider, logicalModel string) string {
	if r.catalog == nil {
		return logicalModel
	}
	return r.catalog.ProviderModelID(provider, logicalModel)
}

func (r *Router) isConfigured(provider string) bool {
	return r.configured != nil && r.configured(provider)
}
