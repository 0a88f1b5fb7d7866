package config

import (
	"fmt"
	"os"

	yamlv2 "gopkg.in/yaml.v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// MarshalYAML serializes the full Config document with yaml.v3, used
// by the /config/export HTTP surface (§6.2).
func MarshalYAML(c Config) ([]byte, error) {
	return yamlv3.Marshal(c)
}

// UnmarshalYAML parses a full Config document with yaml.v3, used by
// /config/import (§6.2) ahead of Validate + ValidateDelta.
func UnmarshalYAML(data []byte) (Config, error) {
	var c Config
	if err := yamlv3.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return c, nil
}

// GuardProfile is a named, regime-scoped bundle of Gates/Penalties
// overrides, loaded separately from the main Config document with
// yaml.v2 — matching the teacher's internal/config/guards.go split
// between the versioned main document (v3) and nested guard-style
// sub-documents (v2).
type GuardProfile struct {
	Name      string    `yaml:"name"`
	Gates     Gates     `yaml:"gates"`
	Penalties Penalties `yaml:"penalties"`
}

// GuardProfilesDocument is the on-disk guard-profile file format.
type GuardProfilesDocument struct {
	Active   string                  `yaml:"active_profile"`
	Profiles map[string]GuardProfile `yaml:"profiles"`
}

// LoadGuardProfiles reads a guard-profiles YAML file from disk.
func LoadGuardProfiles(path string) (*GuardProfilesDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guard profiles: %w", err)
	}
	var doc GuardProfilesDocument
	if err := yamlv2.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse guard profiles yaml: %w", err)
	}
	return &doc, nil
}

// SaveGuardProfiles writes a guard-profiles YAML file to disk.
func SaveGuardProfiles(doc *GuardProfilesDocument, path string) error {
	data, err := yamlv2.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal guard profiles: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ActiveProfile returns the named active profile, if any.
func (d *GuardProfilesDocument) ActiveProfile() (GuardProfile, error) {
	p, ok := d.Profiles[d.Active]
	if !ok {
		return GuardProfile{}, fmt.Errorf("active guard profile %q not found", d.Active)
	}
	return p, nil
}

// ApplyGuardProfile overlays a GuardProfile's Gates/Penalties onto a
// clone of base, leaving weights/thresholds/bounds untouched. base
// itself is not modified; the result is a new, unversioned Config that a
// caller may submit through Store.Update like any other proposed write.
func ApplyGuardProfile(base Config, p GuardProfile) Config {
	clone := base.Clone()
	clone.Gates = p.Gates
	clone.Penalties = p.Penalties
	return clone
}
