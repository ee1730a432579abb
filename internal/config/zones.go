package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Zone is a geographic area that groups several residence cities
type Zone struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Cities []string `yaml:"cities"`
}

type zonesFile struct {
	Zones []Zone `yaml:"zones"`
}

// DefaultZones returns the built-in zone map, in quick-reply order
func DefaultZones() []Zone {
	return []Zone{
		{ID: "paris", Name: "Paris", Cities: []string{"Massy-Palaiseau", "Villejuif", "Noisy-le-Grand"}},
		{ID: "geneve", Name: "Genève", Cities: []string{"Archamps"}},
		{ID: "lille", Name: "Lille", Cities: []string{"Lille"}},
		{ID: "bordeaux", Name: "Bordeaux", Cities: []string{"Bordeaux"}},
	}
}

// LoadZones reads the zone map from a YAML file, or returns the defaults when path is empty
func LoadZones(path string) ([]Zone, error) {
	if path == "" {
		return DefaultZones(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zones file: %w", err)
	}

	var f zonesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse zones file: %w", err)
	}
	if len(f.Zones) == 0 {
		return nil, fmt.Errorf("zones file %s defines no zones", path)
	}

	for i, z := range f.Zones {
		if z.Name == "" {
			return nil, fmt.Errorf("zone #%d has no name", i+1)
		}
		if len(z.Cities) == 0 {
			return nil, fmt.Errorf("zone %s has no cities", z.Name)
		}
	}

	return f.Zones, nil
}
