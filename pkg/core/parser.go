package core

import (
	"fmt"
	"os"

	"github.com/arnavsurve/pagestep/pkg/types"
	"gopkg.in/yaml.v3"
)

// ParseJob decodes a job document. JSON is accepted as well since it is a
// subset of YAML.
func ParseJob(data []byte) (*types.JobDocument, error) {
	var shape map[string]any
	if err := yaml.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("parsing job document: %w", err)
	}
	if _, ok := shape["actions"]; !ok {
		return nil, fmt.Errorf("job document is missing 'actions'")
	}

	var doc types.JobDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing job document: %w", err)
	}
	return &doc, nil
}

func LoadJobFromFile(path string) (*types.JobDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file %q: %w", path, err)
	}

	doc, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := ValidateJobStructure(doc); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}

	return doc, nil
}
