package capability

import "slices"

// Selector orders the adapters eligible for a capability. The order is fixed
// at construction; configuration is not reloaded.
type Selector struct {
	orders  map[Capability][]string
	configs map[Capability][]ProviderConfig
}

// NewSelector captures priorities and provider configs. Missing priority
// lists fall back to DefaultPriorities.
func NewSelector(priorities map[Capability][]string, configs []ProviderConfig) *Selector {
	byCapability := make(map[Capability]map[string]ProviderConfig)
	for _, cfg := range configs {
		if byCapability[cfg.Capability] == nil {
			byCapability[cfg.Capability] = make(map[string]ProviderConfig)
		}
		byCapability[cfg.Capability][cfg.Name] = cfg
	}

	defaults := DefaultPriorities()
	s := &Selector{
		orders:  make(map[Capability][]string),
		configs: make(map[Capability][]ProviderConfig),
	}
	for _, c := range All() {
		priority := priorities[c]
		if len(priority) == 0 {
			priority = defaults[c]
		}

		known := byCapability[c]
		seen := make(map[string]bool)
		order := make([]string, 0, len(priority)+1)
		for _, name := range priority {
			if name == LocalProvider || seen[name] {
				continue
			}
			cfg, ok := known[name]
			if !ok {
				continue
			}
			seen[name] = true
			s.configs[c] = append(s.configs[c], cfg)
			if cfg.Credentialed {
				order = append(order, name)
			}
		}

		local, ok := known[LocalProvider]
		if !ok {
			local = ProviderConfig{Name: LocalProvider, DisplayName: "Local Fallback", Capability: c}
		}
		local.Credentialed = true
		s.configs[c] = append(s.configs[c], local)
		s.orders[c] = append(order, LocalProvider)
	}
	return s
}

// SelectOrder returns the adapter ids to try, best first. The local adapter
// is always present and always last.
func (s *Selector) SelectOrder(c Capability) []string {
	order, ok := s.orders[c]
	if !ok {
		return []string{LocalProvider}
	}
	return slices.Clone(order)
}

// Preferred returns the first adapter id for a capability.
func (s *Selector) Preferred(c Capability) string {
	return s.SelectOrder(c)[0]
}

// Providers returns the configs known for a capability in priority order,
// including providers without credentials. Local comes last.
func (s *Selector) Providers(c Capability) []ProviderConfig {
	return slices.Clone(s.configs[c])
}

// Config returns the config for a provider id.
func (s *Selector) Config(c Capability, name string) (ProviderConfig, bool) {
	for _, cfg := range s.configs[c] {
		if cfg.Name == name {
			return cfg, true
		}
	}
	return ProviderConfig{}, false
}
