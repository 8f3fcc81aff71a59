package clusterconfig

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Setting is a single key of an engine configuration file, e.g. cluster.name.
type Setting struct {
	Key   string
	Value any
}

// Settings is an ordered engine configuration document. Order is kept when
// serializing so the rendered file reads the same way on every render.
type Settings []Setting

// Get returns the value stored under key.
func (s Settings) Get(key string) (any, bool) {
	for _, item := range s {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

// Merge returns a new document with overlay applied on top of s.
// Keys already present keep their position and take the overlay value,
// new keys are appended in overlay order.
func (s Settings) Merge(overlay Settings) Settings {
	out := make(Settings, len(s), len(s)+len(overlay))
	copy(out, s)
	for _, item := range overlay {
		found := false
		for i := range out {
			if out[i].Key == item.Key {
				out[i].Value = item.Value
				found = true
				break
			}
		}
		if !found {
			out = append(out, item)
		}
	}
	return out
}

func (s Settings) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}
	for _, item := range s {
		key := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.Key,
		}
		value := &yaml.Node{}
		if err := value.Encode(item.Value); err != nil {
			return nil, fmt.Errorf("could not encode %s: %w", item.Key, err)
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// YAML renders the document in block style with two-space indentation.
func (s Settings) YAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
