package frontmatter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mapping is a key-ordered view of a front matter block with explicit
// list-field support. Edits preserve the original key order; new keys are
// appended. Serialization is deterministic for a given sequence of edits.
type Mapping struct {
	node *yaml.Node // mapping node; Content is [k1, v1, k2, v2, ...]
}

// ParseMapping parses a raw front matter block into an editable mapping.
// Empty input yields an empty mapping.
func ParseMapping(text string) (*Mapping, error) {
	m := &Mapping{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return m, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("frontmatter: parse mapping: %w", err)
	}
	if len(doc.Content) == 0 {
		return m, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: front matter is not a mapping")
	}
	m.node = root
	return m, nil
}

func (m *Mapping) find(key string) int {
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// Keys returns the field names in document order.
func (m *Mapping) Keys() []string {
	out := make([]string, 0, len(m.node.Content)/2)
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		out = append(out, m.node.Content[i].Value)
	}
	return out
}

// Get returns the scalar value of a field.
func (m *Mapping) Get(key string) (string, bool) {
	i := m.find(key)
	if i < 0 {
		return "", false
	}
	v := m.node.Content[i+1]
	if v.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.Value, true
}

// GetList returns a list field, accepting a sequence or a single scalar.
func (m *Mapping) GetList(key string) []string {
	i := m.find(key)
	if i < 0 {
		return nil
	}
	v := m.node.Content[i+1]
	switch v.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, item := range v.Content {
			if item.Kind == yaml.ScalarNode && item.Value != "" {
				out = append(out, item.Value)
			}
		}
		return out
	case yaml.ScalarNode:
		if v.Value != "" {
			return []string{v.Value}
		}
	}
	return nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// Set writes a scalar field in place, appending the key if absent.
func (m *Mapping) Set(key, value string) {
	if i := m.find(key); i >= 0 {
		m.node.Content[i+1] = scalar(value)
		return
	}
	m.node.Content = append(m.node.Content, scalar(key), scalar(value))
}

// SetList writes a list field in place. An empty list removes the field.
func (m *Mapping) SetList(key string, items []string) {
	if len(items) == 0 {
		m.Remove(key)
		return
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		seq.Content = append(seq.Content, scalar(item))
	}
	if i := m.find(key); i >= 0 {
		m.node.Content[i+1] = seq
		return
	}
	m.node.Content = append(m.node.Content, scalar(key), seq)
}

// Remove drops a field. Removing an absent key is a no-op.
func (m *Mapping) Remove(key string) {
	i := m.find(key)
	if i < 0 {
		return
	}
	m.node.Content = append(m.node.Content[:i], m.node.Content[i+2:]...)
}

// Encode serializes the mapping back to a front matter block without
// delimiters. An empty mapping encodes to the empty string.
func (m *Mapping) Encode() (string, error) {
	if len(m.node.Content) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.node); err != nil {
		return "", fmt.Errorf("frontmatter: encode mapping: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: close encoder: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
