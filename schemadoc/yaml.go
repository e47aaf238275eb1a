package schemadoc

import (
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML-authored schema document. Mapping order is taken
// from the YAML node tree, so declaration order survives the round trip.
func ParseYAML(data []byte) (*Doc, error) {
	j, err := YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	return Parse(j)
}

// YAMLToJSON renders a single YAML document as JSON, preserving mapping key
// order. The result feeds both Parse and the engine compiler.
func YAMLToJSON(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("schemadoc: %w", err)
	}
	root := &node
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return []byte("null"), nil
		}
		root = root.Content[0]
	}
	var b strings.Builder
	if err := writeNodeJSON(&b, root); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeNodeJSON(b *strings.Builder, n *yaml.Node) error {
	switch n.Kind {
	case yaml.AliasNode:
		return writeNodeJSON(b, n.Alias)
	case yaml.MappingNode:
		b.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				b.WriteByte(',')
			}
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return fmt.Errorf("schemadoc: non-string mapping key: %w", err)
			}
			k, err := gojson.Marshal(key)
			if err != nil {
				return err
			}
			b.Write(k)
			b.WriteByte(':')
			if err := writeNodeJSON(b, n.Content[i+1]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		b.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeNodeJSON(b, c); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("schemadoc: %w", err)
		}
		enc, err := gojson.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(enc)
		return nil
	default:
		return fmt.Errorf("schemadoc: unsupported YAML node kind %d", n.Kind)
	}
}
