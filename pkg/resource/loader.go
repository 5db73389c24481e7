package resource

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRegistry reads a resource metadata document from a YAML file. The
// document is the host framework's introspection output: already-resolved
// resource descriptors, not live framework objects. Resources without
// declared routes get the conventional route set derived from their actions.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data)
}

// ParseRegistry parses a resource metadata document from YAML bytes.
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing resource metadata: %w", err)
	}
	for i := range reg.Resources {
		r := &reg.Resources[i]
		if len(r.Routes) == 0 {
			r.Routes = DefaultRoutes(r)
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}
