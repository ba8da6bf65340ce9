package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export. Field names match the JSON form.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a scene document from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range doc.Nodes {
		doc.Nodes[i].Model = normalizeYAML(doc.Nodes[i].Model)
	}
	return &doc, nil
}

// Export exports a scene document to YAML
func (c *YAMLCodec) Export(doc *Document, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// normalizeYAML widens yaml's int to int64 to match the JSON decoder
func normalizeYAML(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case int:
			m[k] = int64(t)
		case map[string]any:
			m[k] = normalizeYAML(t)
		}
	}
	return m
}
