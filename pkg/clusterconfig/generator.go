package clusterconfig

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Version names returned by Generator.Version.
const (
	QuorumVersion = "ES_6"
	VotingVersion = "ES_7"
)

// Generator renders the engine configuration file for a node.
type Generator interface {
	// Version names the clustering scheme implemented, e.g. ES_6.
	Version() string
	// GetConfig renders base settings, the optional role overlay, and the optional trailing override block.
	GetConfig(clusterName string, singleNode bool, stackName string, managerCount int, opts ...Option) (string, error)
}

type renderOptions struct {
	role             *Role
	roleName         *string
	additionalConfig string
}

type Option func(*renderOptions)

// WithRole applies the role overlay for r.
func WithRole(r Role) Option {
	return func(o *renderOptions) {
		o.role = &r
	}
}

// WithRoleName applies the role overlay for the named role; an unknown name fails the render.
func WithRoleName(name string) Option {
	return func(o *renderOptions) {
		o.roleName = &name
	}
}

// WithAdditionalConfig appends text verbatim after the generated document.
// The text is neither parsed nor merged, so it may shadow generated keys.
func WithAdditionalConfig(text string) Option {
	return func(o *renderOptions) {
		o.additionalConfig = text
	}
}

type engine struct {
	version   string
	multiBase func(clusterName string, stackName string, managerCount int) Settings
	roles     [roleCount]Settings
}

func (e *engine) Version() string {
	return e.version
}

func (e *engine) GetConfig(clusterName string, singleNode bool, stackName string, managerCount int, opts ...Option) (string, error) {
	o := &renderOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if managerCount < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidManagerCount, managerCount)
	}
	var doc Settings
	if singleNode {
		doc = singleNodeBase(clusterName)
	} else {
		doc = e.multiBase(clusterName, stackName, managerCount)
	}
	role := o.role
	if o.roleName != nil {
		r, err := ParseRole(*o.roleName)
		if err != nil {
			return "", err
		}
		role = &r
	}
	if role != nil {
		if !role.Valid() {
			return "", fmt.Errorf("%w: %s", ErrUnknownRole, *role)
		}
		doc = doc.Merge(e.roles[*role])
	}
	out, err := doc.YAML()
	if err != nil {
		return "", fmt.Errorf("could not serialize %s config: %w", e.version, err)
	}
	if o.additionalConfig != "" {
		out = out + "\n" + o.additionalConfig
	}
	return out, nil
}

func singleNodeBase(clusterName string) Settings {
	return Settings{
		{"cluster.name", clusterName},
		{"network.host", 0},
		{"http.port", 9200},
		{"discovery.type", "single-node"},
	}
}

// Ec2TagFilter is the discovery-ec2 tag value that selects the seed and manager auto scaling groups.
func Ec2TagFilter(stackName string) string {
	return fmt.Sprintf("%s/seedNodeAsg,%s/managerNodeAsg", stackName, stackName)
}

// MinimumMasterNodes returns floor(n/2)+1. An even count does not give a true majority.
func MinimumMasterNodes(managerCount int) int {
	return managerCount/2 + 1
}

// ForEngine picks the generator matching the family and version.
// Elasticsearch before 7.0 uses zen quorum discovery, everything else voting-based discovery.
func ForEngine(family Family, version string) (Generator, error) {
	switch family {
	case FamilyOpenSearch:
		return NewVoting(), nil
	case FamilyElasticsearch:
		v, err := semver.NewVersion(version)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %s", ErrInvalidVersion, version, err)
		}
		if v.Major() < 7 {
			return NewQuorum(), nil
		}
		return NewVoting(), nil
	}
	return nil, fmt.Errorf("%w: family %q", ErrUnknownDistribution, family)
}
