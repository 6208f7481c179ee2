package config

import (
	"slices"

	"github.com/flemzord/crew/internal/core"
)

// foundation lists the namespaces whose modules must be provisioned before
// the runner is built: adapters and stores it depends on.
var foundation = []string{"provider", "memory"}

// Resolve returns the configured module IDs split into the foundation
// modules (providers and stores) and the rest, each sorted for a
// deterministic load order.
func Resolve(cfg *Config) (base, rest []string) {
	for id := range cfg.Modules {
		if slices.Contains(foundation, core.ModuleID(id).Namespace()) {
			base = append(base, id)
		} else {
			rest = append(rest, id)
		}
	}
	slices.Sort(base)
	slices.Sort(rest)
	return base, rest
}
