package clusterconfig

import (
	"fmt"
	"strings"
)

// Family is the search engine product line a distribution belongs to.
type Family string

const (
	FamilyOpenSearch    Family = "opensearch"
	FamilyElasticsearch Family = "elasticsearch"
)

// DetectFamily inspects a distribution download URL. OpenSearch wins when
// the URL mentions both products.
func DetectFamily(distributionURL string) (Family, error) {
	switch {
	case strings.Contains(distributionURL, "opensearch"):
		return FamilyOpenSearch, nil
	case strings.Contains(distributionURL, "elasticsearch"):
		return FamilyElasticsearch, nil
	}
	return "", fmt.Errorf("%w: provided distributionUrl: %s", ErrUnknownDistribution, distributionURL)
}

// ParseFamily accepts the family name as typed on the command line.
func ParseFamily(name string) (Family, error) {
	switch Family(strings.ToLower(name)) {
	case FamilyOpenSearch:
		return FamilyOpenSearch, nil
	case FamilyElasticsearch:
		return FamilyElasticsearch, nil
	}
	return "", fmt.Errorf("%w: family %q", ErrUnknownDistribution, name)
}

// Product is the name of the engine directory and binary for the family.
func (f Family) Product() string {
	return string(f)
}

// Dashboards is the name of the companion dashboard product for the family.
func (f Family) Dashboards() string {
	if f == FamilyElasticsearch {
		return "kibana"
	}
	return "opensearch-dashboards"
}

// DashboardsConfigFile is the dashboards configuration file, relative to the dashboards directory.
func (f Family) DashboardsConfigFile() string {
	if f == FamilyElasticsearch {
		return "config/kibana.yml"
	}
	return "config/opensearch_dashboards.yml"
}

// ConfigFile is the engine configuration file, relative to the engine directory.
func (f Family) ConfigFile() string {
	return "config/" + string(f) + ".yml"
}
