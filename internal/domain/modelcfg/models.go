// Package modelcfg loads the model catalog from YAML into an explicit,
// injectable registry. Adapters that bill from configuration (rather than a
// hardcoded table) read their rates from here; the registry also carries the
// per-provider model-id mapping used by the router.
package modelcfg

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RateBySound holds per-second credit rates with and without audio.
type RateBySound struct {
	NoAudio   int `yaml:"no_audio"`
	WithAudio int `yaml:"with_audio"`
}

// CreditsMapping is the configuration-driven billing table used by models
// priced per second of output.
type CreditsMapping struct {
	BillingType  string      `yaml:"billing_type"`
	PerSecondStd RateBySound `yaml:"mc_per_second_std"`
	PerSecondPro RateBySound `yaml:"mc_per_second_pro"`
}

// Model describes one catalog entry.
type Model struct {
	ModelID        string            `yaml:"model_id"`
	DisplayName    string            `yaml:"display_name"`
	Type           string            `yaml:"type"`
	CreditsMapping *CreditsMapping   `yaml:"credits_mapping"`
	ProviderIDs    map[string]string `yaml:"provider_ids"`
}

type catalog struct {
	Models []Model `yaml:"models"`
}

// Registry exposes catalog lookups. It is built once at startup and passed by
// reference so tests can construct their own instances.
type Registry struct {
	byID map[string]Model
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modelcfg: read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Registry from raw YAML bytes.
func Parse(raw []byte) (*Registry, error) {
	var c catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("modelcfg: parse catalog: %w", err)
	}
	byID := make(map[string]Model, len(c.Models))
	for _, m := range c.Models {
		id := strings.TrimSpace(m.ModelID)
		if id == "" {
			continue
		}
		byID[strings.ToLower(id)] = m
	}
	return &Registry{byID: byID}, nil
}

// NewRegistry builds a Registry directly from models, primarily for tests.
func NewRegistry(models ...Model) *Registry {
	byID := make(map[string]Model, len(models))
	for _, m := range models {
		byID[strings.ToLower(strings.TrimSpace(m.ModelID))] = m
	}
	return &Registry{byID: byID}
}

// Lookup returns the catalog entry for modelID.
func (r *Registry) Lookup(modelID string) (Model, bool) {
	if r == nil {
		return Model{}, false
	}
	m, ok := r.byID[strings.ToLower(strings.TrimSpace(modelID))]
	return m, ok
}

// RatePerSecond returns the configured per-second rate for the given model,
// mode ("std" or "pro") and audio flag. Zero is returned when the catalog has
// no usable entry so callers can apply their documented fallback rates.
func (r *Registry) RatePerSecond(modelID, mode string, withSound bool) int {
	m, ok := r.Lookup(modelID)
	if !ok || m.CreditsMapping == nil {
		return 0
	}
	rates := m.CreditsMapping.PerSecondStd
	if strings.EqualFold(mode, "pro") {
		rates = m.CreditsMapping.PerSecondPro
	}
	if withSound {
		return rates.WithAudio
	}
	return rates.NoAudio
}

// ProviderModelID resolves the provider-specific identifier for a logical
// model, falling back to the logical name when no mapping is configured.
func (r *Registry) ProviderModelID(provider, modelID string) string {
	m, ok := r.Lookup(modelID)
	if !ok || len(m.ProviderIDs) == 0 {
		return modelID
	}
	if mapped, ok := m.ProviderIDs[strings.ToLower(strings.TrimSpace(provider))]; ok && strings.TrimSpace(mapped) != "" {
		return mapped
	}
	return modelID
}
