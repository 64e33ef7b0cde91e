// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/ManuGH/camwatch/internal/policy"
	"github.com/ManuGH/camwatch/internal/topology"
)

// ResolvedProfiles returns every usable profile by name: the built-in ones
// plus the configured ones with their zero fields inherited.
func (c AppConfig) ResolvedProfiles() map[string]policy.Profile {
	out := builtinProfiles()
	def := out[policy.DefaultName]
	if pc, ok := c.Profiles[policy.DefaultName]; ok {
		def = pc.apply(def, policy.DefaultName)
	}
	out[policy.DefaultName] = def

	for name, pc := range c.Profiles {
		if name == policy.DefaultName {
			continue
		}
		base, ok := out[name]
		if !ok {
			base = def
		}
		out[name] = pc.apply(base, name)
	}
	return out
}

func (pc ProfileConfig) apply(base policy.Profile, name string) policy.Profile {
	p := base
	p.Name = name
	if pc.Timeout != 0 {
		p.Timeout = pc.Timeout
	}
	if pc.MaxAttempts != 0 {
		p.MaxAttempts = pc.MaxAttempts
	}
	if pc.FramesToCheck != 0 {
		p.FramesToCheck = pc.FramesToCheck
	}
	if pc.WarmupFrames != nil {
		p.WarmupFrames = *pc.WarmupFrames
	}
	if pc.Precheck != nil {
		p.Precheck = *pc.Precheck
	}
	if pc.PrecheckTimeout != 0 {
		p.PrecheckTimeout = pc.PrecheckTimeout
	}
	return p
}

// Policy binds each location that names a profile to that profile.
func (c AppConfig) Policy() (*policy.Policy, error) {
	profiles := c.ResolvedProfiles()
	bindings := make(map[string]policy.Profile)
	for _, loc := range c.Locations {
		if loc.Profile == "" || loc.Profile == policy.DefaultName {
			continue
		}
		p, ok := profiles[loc.Profile]
		if !ok {
			return nil, fmt.Errorf("location %q: unknown profile %q", loc.ID, loc.Profile)
		}
		bindings[loc.ID] = p
	}
	return policy.New(profiles[policy.DefaultName], bindings)
}

// Topology builds the immutable location set with resolved profiles.
func (c AppConfig) Topology() (*topology.Topology, error) {
	pol, err := c.Policy()
	if err != nil {
		return nil, err
	}
	specs := make([]topology.Spec, len(c.Locations))
	for i, loc := range c.Locations {
		specs[i] = topology.Spec{
			ID:       loc.ID,
			Name:     loc.Name,
			Template: loc.Template,
			Channels: slices.Clone(loc.Channels),
		}
	}
	return topology.New(specs, pol)
}

// Location loads the configured time zone.
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
