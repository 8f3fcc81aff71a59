package deploycontext

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// jsonToYAML converts a JSON document to block-style YAML, keeping key order.
func jsonToYAML(key string, text string) (string, error) {
	var probe map[string]any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return "", fmt.Errorf("%w: Encountered following error while parsing %s json parameter: %s", ErrInvalidContext, key, err)
	}
	node := new(yaml.Node)
	// JSON is a subset of YAML, so the YAML parser keeps the document order for us
	if err := yaml.Unmarshal([]byte(text), node); err != nil {
		return "", fmt.Errorf("%w: Encountered following error while parsing %s json parameter: %s", ErrInvalidContext, key, err)
	}
	clearStyle(node)
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
