// Package sites reads the list of domains to monitor.
package sites

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Site is one entry of the sites file. It may be written as a bare domain
// string or as a mapping with per-site overrides.
type Site struct {
	Domain        string `yaml:"domain"`
	Protocol      string `yaml:"protocol,omitempty"`
	DurationHours int    `yaml:"duration_hours,omitempty"`
}

func (s *Site) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Domain = node.Value
		return nil
	}
	type plain Site
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = Site(p)
	return nil
}

// Defaults apply to sites that leave a field empty.
type Defaults struct {
	Protocol      string `yaml:"protocol,omitempty"`
	DurationHours int    `yaml:"duration_hours,omitempty"`
}

// File is the root of sites.yaml:
//
//	defaults:
//	  protocol: https
//	  duration_hours: 24
//	sites:
//	  - example.com
//	  - domain: api.example.com
//	    protocol: http
//	    duration_hours: 6
type File struct {
	Defaults Defaults `yaml:"defaults"`
	Sites    []Site   `yaml:"sites"`
}
