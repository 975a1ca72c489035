package arr

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultInstanceName is used when a tool call names no instance.
const DefaultInstanceName = "default"

// ErrInstanceNotFound is returned for unknown instance names.
var ErrInstanceNotFound = errors.New("instance not found")

// Instances holds the configured Sonarr and Radarr clients by name.
type Instances struct {
	mu     sync.RWMutex
	sonarr map[string]*Sonarr
	radarr map[string]*Radarr
	opts   []Option
}

// NewInstances creates an empty set. opts are applied to every client.
func NewInstances(opts ...Option) *Instances {
	return &Instances{
		sonarr: make(map[string]*Sonarr),
		radarr: make(map[string]*Radarr),
		opts:   opts,
	}
}

// Add registers an instance. Names must be unique per kind.
func (i *Instances) Add(instance Instance) error {
	if instance.Name == "" {
		instance.Name = DefaultInstanceName
	}
	if instance.URL == "" {
		return fmt.Errorf("%s instance %s has no URL", instance.Kind.DisplayName(), instance.Name)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	switch instance.Kind {
	case KindSonarr:
		if _, exists := i.sonarr[instance.Name]; exists {
			return fmt.Errorf("duplicate Sonarr instance %q", instance.Name)
		}
		i.sonarr[instance.Name] = NewSonarr(instance, i.opts...)
	case KindRadarr:
		if _, exists := i.radarr[instance.Name]; exists {
			return fmt.Errorf("duplicate Radarr instance %q", instance.Name)
		}
		i.radarr[instance.Name] = NewRadarr(instance, i.opts...)
	default:
		return fmt.Errorf("unknown instance kind %q", instance.Kind)
	}
	return nil
}

// Sonarr returns the named Sonarr client. An empty name means "default".
func (i *Instances) Sonarr(name string) (*Sonarr, error) {
	if name == "" {
		name = DefaultInstanceName
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	client, ok := i.sonarr[name]
	if !ok {
		return nil, fmt.Errorf("Sonarr instance %q: %w", name, ErrInstanceNotFound)
	}
	return client, nil
}

// Radarr returns the named Radarr client. An empty name means "default".
func (i *Instances) Radarr(name string) (*Radarr, error) {
	if name == "" {
		name = DefaultInstanceName
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	client, ok := i.radarr[name]
	if !ok {
		return nil, fmt.Errorf("Radarr instance %q: %w", name, ErrInstanceNotFound)
	}
	return client, nil
}

// Client returns the shared client for the named instance of kind.
func (i *Instances) Client(kind Kind, name string) (*Client, error) {
	switch kind {
	case KindSonarr:
		s, err := i.Sonarr(name)
		if err != nil {
			return nil, err
		}
		return s.Client, nil
	case KindRadarr:
		r, err := i.Radarr(name)
		if err != nil {
			return nil, err
		}
		return r.Client, nil
	default:
		return nil, fmt.Errorf("unknown instance kind %q", kind)
	}
}

// Names returns the sorted instance names of kind.
func (i *Instances) Names(kind Kind) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var names []string
	switch kind {
	case KindSonarr:
		for name := range i.sonarr {
			names = append(names, name)
		}
	case KindRadarr:
		for name := range i.radarr {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of instances.
func (i *Instances) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.sonarr) + len(i.radarr)
}
