package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/glowlink/glowlink/internal/ble"
)

// ProfileSet maps a profile name to the display capabilities of that
// hardware class. Device names are matched against profiles by prefix at
// registration time.
type ProfileSet struct {
	Profiles map[string]ble.Capabilities `yaml:"profiles"`
}

// LoadProfiles reads a capability profile file. A missing path is not an
// error; callers fall back to defaults.
func LoadProfiles(path string) (*ProfileSet, error) {
	if path == "" {
		return &ProfileSet{Profiles: map[string]ble.Capabilities{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	var set ProfileSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	if set.Profiles == nil {
		set.Profiles = map[string]ble.Capabilities{}
	}
	return &set, nil
}

// Lookup returns the capabilities for a profile name, or the defaults when
// the name is unknown.
func (s *ProfileSet) Lookup(name string) ble.Capabilities {
	if caps, ok := s.Profiles[name]; ok {
		caps.Profile = name
		return caps
	}
	return ble.DefaultCapabilities()
}
