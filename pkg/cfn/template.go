// Package cfn is a small typed model of an AWS CloudFormation template.
//
// Only the parts of the template language the cluster stacks need are modelled.
// Resource properties stay untyped maps, so any resource type can be expressed.
package cfn

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const FormatVersion = "2010-09-09"

var ErrUnknownFormat = errors.New("unknown template format")

type Template struct {
	AWSTemplateFormatVersion string                `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]*Parameter `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]*Resource  `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]*Output    `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

type Parameter struct {
	Type        string `json:"Type" yaml:"Type"`
	Default     string `json:"Default,omitempty" yaml:"Default,omitempty"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

type Resource struct {
	Type                string          `json:"Type" yaml:"Type"`
	Properties          map[string]any  `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	Metadata            map[string]any  `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
	DependsOn           []string        `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	CreationPolicy      *CreationPolicy `json:"CreationPolicy,omitempty" yaml:"CreationPolicy,omitempty"`
	DeletionPolicy      string          `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string          `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

type CreationPolicy struct {
	ResourceSignal *ResourceSignal `json:"ResourceSignal,omitempty" yaml:"ResourceSignal,omitempty"`
}

type ResourceSignal struct {
	Count   int    `json:"Count" yaml:"Count"`
	Timeout string `json:"Timeout,omitempty" yaml:"Timeout,omitempty"`
}

type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

type Export struct {
	Name any `json:"Name" yaml:"Name"`
}

// Tag is the Key/Value pair used by most resource types.
type Tag struct {
	Key   string `json:"Key" yaml:"Key"`
	Value any    `json:"Value" yaml:"Value"`
}

func New(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              description,
		Resources:                make(map[string]*Resource),
	}
}

// Add registers a resource under its logical id, replacing any previous resource with that id.
func (t *Template) Add(logicalID string, r *Resource) *Resource {
	t.Resources[logicalID] = r
	return r
}

func (t *Template) AddParameter(name string, p *Parameter) {
	if t.Parameters == nil {
		t.Parameters = make(map[string]*Parameter)
	}
	t.Parameters[name] = p
}

// AddOutput adds an output value; exportName is optional.
func (t *Template) AddOutput(name string, value any, exportName string) {
	if t.Outputs == nil {
		t.Outputs = make(map[string]*Output)
	}
	o := &Output{Value: value}
	if exportName != "" {
		o.Export = &Export{Name: exportName}
	}
	t.Outputs[name] = o
}

func (t *Template) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// CompactJSON is the smallest rendering, used as the deployed template body.
func (t *Template) CompactJSON() ([]byte, error) {
	return json.Marshal(t)
}

func (t *Template) YAML() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render returns the template body in the named format (json or yaml).
func (t *Template) Render(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return t.JSON()
	case "yaml", "yml":
		return t.YAML()
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}
