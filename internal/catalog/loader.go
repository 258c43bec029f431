package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrEmptyCatalog = errors.New("catalog is empty")

type document struct {
	Cams []Cam `yaml:"cams"`
}

// Parse accepts either a top-level list of cams or a mapping with a "cams" list.
// JSON documents are accepted as well.
func Parse(data []byte) ([]Cam, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyCatalog
	}

	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if len(node.Content) == 0 {
		return nil, ErrEmptyCatalog
	}

	var cams []Cam
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&cams); err != nil {
			return nil, fmt.Errorf("failed to decode cams: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode cams: %w", err)
		}
		cams = doc.Cams
	default:
		return nil, fmt.Errorf("failed to parse catalog: unexpected %s at top level", root.Tag)
	}

	if len(cams) == 0 {
		return nil, ErrEmptyCatalog
	}

	return cams, nil
}

func Load(path string) ([]Cam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return Parse(data)
}
