// Package policy resolves the per-location probe parameters.
//
// Every location gets the default profile unless it is bound to a named
// profile. Bindings are keyed by the stable location id and resolved once,
// when the topology is built; nothing inspects connection strings at probe time.
package policy

import (
	"errors"
	"fmt"
	"time"
)

// DefaultName is the name of the profile used for unbound locations.
const DefaultName = "default"

// Profile holds the probe parameters for one location.
type Profile struct {
	Name            string
	Timeout         time.Duration // stream open / read timeout per attempt
	MaxAttempts     int
	FramesToCheck   int // frames classified after warm-up
	WarmupFrames    int // frames discarded before classification
	Precheck        bool
	PrecheckTimeout time.Duration
}

// Default returns the base profile: 5s timeout, 3 attempts, 5 sampled frames,
// no warm-up and no connectivity pre-check.
func Default() Profile {
	return Profile{
		Name:            DefaultName,
		Timeout:         5 * time.Second,
		MaxAttempts:     3,
		FramesToCheck:   5,
		WarmupFrames:    0,
		Precheck:        false,
		PrecheckTimeout: time.Second,
	}
}

// Slow returns the stricter profile used for endpoints that need more time
// to negotiate a stream.
func Slow() Profile {
	return Profile{
		Name:            "slow",
		Timeout:         10 * time.Second,
		MaxAttempts:     5,
		FramesToCheck:   8,
		WarmupFrames:    3,
		Precheck:        true,
		PrecheckTimeout: 3 * time.Second,
	}
}

// Validate reports whether the profile can drive a probe.
func (p Profile) Validate() error {
	var errs []error
	if p.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("profile %q: timeout must be positive", p.Name))
	}
	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("profile %q: max_attempts must be at least 1", p.Name))
	}
	if p.FramesToCheck < 1 {
		errs = append(errs, fmt.Errorf("profile %q: frames_to_check must be at least 1", p.Name))
	}
	if p.WarmupFrames < 0 {
		errs = append(errs, fmt.Errorf("profile %q: warmup_frames must not be negative", p.Name))
	}
	if p.Precheck && p.PrecheckTimeout <= 0 {
		errs = append(errs, fmt.Errorf("profile %q: precheck_timeout must be positive when precheck is enabled", p.Name))
	}
	return errors.Join(errs...)
}

// Budget is the worst-case time one channel probe may block on stream I/O.
func (p Profile) Budget() time.Duration {
	return p.Timeout * time.Duration(p.MaxAttempts)
}

// FrameLimit is the number of frames a probe needs from the stream source.
func (p Profile) FrameLimit() int {
	return p.WarmupFrames + p.FramesToCheck
}

// Policy is an immutable table mapping location ids to profiles.
type Policy struct {
	def      Profile
	bindings map[string]Profile
}

// New builds a policy. Every profile, including the default, is validated.
func New(def Profile, bindings map[string]Profile) (*Policy, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	copied := make(map[string]Profile, len(bindings))
	for id, p := range bindings {
		if id == "" {
			return nil, errors.New("policy binding with empty location id")
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("location %q: %w", id, err)
		}
		copied[id] = p
	}
	return &Policy{def: def, bindings: copied}, nil
}

// Resolve returns the profile for a location id. Unbound ids get the default.
func (p *Policy) Resolve(locationID string) Profile {
	if p == nil {
		return Default()
	}
	if prof, ok := p.bindings[locationID]; ok {
		return prof
	}
	return p.def
}

// Default returns the policy's base profile.
func (p *Policy) Default() Profile {
	if p == nil {
		return Default()
	}
	return p.def
}
