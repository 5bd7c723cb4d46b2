package video

import (
	"strings"

	"genserver/internal/domain"
	"genserver/internal/domain/modelcfg"
	"genserver/internal/providers/kie"
)

// Registry maps (provider, logical model name) pairs onto adapters. It is
// constructed once at startup and passed by reference; nothing here mutates
// after wiring.
type Registry struct {
	adapters map[string]map[string]Adapter
	defaults map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]map[string]Adapter),
		defaults: make(map[string]Adapter),
	}
}

// Register binds an adapter to a provider and one or more model aliases.
func (r *Registry) Register(provider string, adapter Adapter, aliases ...string) {
	provider = strings.ToLower(provider)
	byAlias, ok := r.adapters[provider]
	if !ok {
		byAlias = make(map[string]Adapter)
		r.adapters[provider] = byAlias
	}
	for _, alias := range aliases {
		byAlias[strings.ToLower(alias)] = adapter
	}
}

// RegisterDefault binds the adapter used for any model the provider has no
// explicit alias for.
func (r *Registry) RegisterDefault(provider string, adapter Adapter) {
	r.defaults[strings.ToLower(provider)] = adapter
}

// Lookup resolves the adapter for a provider and logical model name. Exact
// alias match wins; otherwise the provider's default adapter serves the
// model if one is registered.
func (r *Registry) Lookup(provider, modelID string) (Adapter, error) {
	provider = strings.ToLower(provider)
	if byAlias, ok := r.adapters[provider]; ok {
		if adapter, ok := byAlias[strings.ToLower(modelID)]; ok {
			return adapter, nil
		}
	}
	if adapter, ok := r.defaults[provider]; ok {
		return adapter, nil
	}
	return nil, domain.NewCodedError(domain.CodeUnsupportedModel,
		"no adapter for model "+modelID+" on provider "+provider, domain.ErrUnsupportedModel)
}

// NewDefaultRegistry wires every adapter under its known model aliases.
// Either client may be nil-credentialed; the router keeps unconfigured
// providers out of the candidate sequence before a lookup happens.
func NewDefaultRegistry(kieClient, replicateClient *kie.Client, catalog *modelcfg.Registry) *Registry {
	r := NewRegistry()

	kling := NewKlingAdapter(kieClient, catalog)
	r.Register("kie", kling,
		"kling/video-v2.5", "kling", "kling-v2.5",
		"kling-3.0/video", "kling/video-v3.0", "kling-v3.0")

	r.Register("kie", NewSora2Adapter(kieClient, catalog), "sora-2", "sora2")
	r.Register("kie", NewSora2ProAdapter(kieClient, catalog), "sora-2-pro", "sora2-pro", "sora2_pro")

	r.Register("kie", NewVeo31FastAdapter(kieClient),
		"veo3_fast", "veo3.1-fast", "veo-3.1-fast")

	r.Register("kie", NewWanAdapter(kieClient), "wan/2.5", "wan2.5", "wan-2.5", "wan")

	r.Register("kie", NewHailuoAdapter(kieClient),
		"hailuo/2-3-image-to-video-standard", "hailuo/2-3-image-to-video-pro",
		"hailuo-2.3", "hailuo")

	r.RegisterDefault("replicate", NewReplicateAdapter(replicateClient, catalog))

	return r
}
