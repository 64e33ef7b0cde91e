// Package topology describes the locations and channels probed every cycle.
package topology

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ManuGH/camwatch/internal/policy"
)

// ChannelPlaceholder is replaced by the channel number in a connection template.
// The bare "{}" form is accepted as well.
const ChannelPlaceholder = "{channel}"

// Spec is the raw definition of one location before policy resolution.
type Spec struct {
	ID       string
	Name     string
	Template string
	Channels []int
}

// Location is one site with its resolved probe profile.
type Location struct {
	ID       string
	Name     string
	Template string
	Channels []int
	Profile  policy.Profile
}

// Descriptor renders the connection descriptor for a channel.
func (l Location) Descriptor(channel int) string {
	return RenderTemplate(l.Template, channel)
}

// RenderTemplate substitutes the channel number into a template.
func RenderTemplate(template string, channel int) string {
	n := strconv.Itoa(channel)
	if strings.Contains(template, ChannelPlaceholder) {
		return strings.ReplaceAll(template, ChannelPlaceholder, n)
	}
	return strings.ReplaceAll(template, "{}", n)
}

// Topology is the immutable set of locations. It is safe for concurrent reads.
type Topology struct {
	locations []Location
	byID      map[string]int
}

// UnknownLocationError lists ids that are not part of the topology.
type UnknownLocationError struct {
	IDs []string
}

func (e *UnknownLocationError) Error() string {
	return "unknown location(s): " + strings.Join(e.IDs, ", ")
}

// New validates the specs and resolves each location's profile once.
func New(specs []Spec, pol *policy.Policy) (*Topology, error) {
	t := &Topology{
		locations: make([]Location, 0, len(specs)),
		byID:      make(map[string]int, len(specs)),
	}
	var errs []error
	for i, s := range specs {
		if err := validateSpec(s); err != nil {
			errs = append(errs, fmt.Errorf("location %d: %w", i, err))
			continue
		}
		if _, dup := t.byID[s.ID]; dup {
			errs = append(errs, fmt.Errorf("location %d: duplicate id %q", i, s.ID))
			continue
		}
		channels := slices.Clone(s.Channels)
		slices.Sort(channels)
		channels = slices.Compact(channels)

		t.byID[s.ID] = len(t.locations)
		t.locations = append(t.locations, Location{
			ID:       s.ID,
			Name:     s.Name,
			Template: s.Template,
			Channels: channels,
			Profile:  pol.Resolve(s.ID),
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

func validateSpec(s Spec) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("%s: name is required", s.ID)
	}
	if !strings.Contains(s.Template, ChannelPlaceholder) && !strings.Contains(s.Template, "{}") {
		return fmt.Errorf("%s: template must contain %s", s.ID, ChannelPlaceholder)
	}
	if len(s.Channels) == 0 {
		return fmt.Errorf("%s: at least one channel is required", s.ID)
	}
	for _, ch := range s.Channels {
		if ch <= 0 {
			return fmt.Errorf("%s: channel numbers must be positive, got %d", s.ID, ch)
		}
	}
	return nil
}

// Len returns the number of locations.
func (t *Topology) Len() int {
	if t == nil {
		return 0
	}
	return len(t.locations)
}

// ChannelCount returns the number of channels across all locations.
func (t *Topology) ChannelCount() int {
	n := 0
	for _, l := range t.Locations() {
		n += len(l.Channels)
	}
	return n
}

// Locations returns copies of the locations in definition order.
func (t *Topology) Locations() []Location {
	if t == nil {
		return nil
	}
	out := make([]Location, len(t.locations))
	for i, l := range t.locations {
		l.Channels = slices.Clone(l.Channels)
		out[i] = l
	}
	return out
}

// Lookup returns the location with the given id.
func (t *Topology) Lookup(id string) (Location, bool) {
	if t == nil {
		return Location{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return Location{}, false
	}
	l := t.locations[i]
	l.Channels = slices.Clone(l.Channels)
	return l, true
}

// IDs returns the location ids in definition order.
func (t *Topology) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, len(t.locations))
	for i, l := range t.locations {
		ids[i] = l.ID
	}
	return ids
}

// Select returns a new topology restricted to the given ids, keeping
// definition order. An empty selection returns the receiver.
func (t *Topology) Select(ids []string) (*Topology, error) {
	if len(ids) == 0 {
		return t, nil
	}
	want := make(map[string]struct{}, len(ids))
	var unknown []string
	for _, id := range ids {
		if _, ok := t.byID[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		want[id] = struct{}{}
	}
	if len(unknown) > 0 {
		return nil, &UnknownLocationError{IDs: unknown}
	}

	sel := &Topology{byID: make(map[string]int, len(want))}
	for _, l := range t.locations {
		if _, ok := want[l.ID]; !ok {
			continue
		}
		sel.byID[l.ID] = len(sel.locations)
		sel.locations = append(sel.locations, l)
	}
	return sel, nil
}
