package deploycontext

import (
	"fmt"
	"strings"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/clusterconfig"
)

const (
	NetworkStackBaseName = "opensearch-network-stack"
	InfraStackBaseName   = "opensearch-infra-stack"
)

// Network describes where the cluster runs and who may reach it.
type Network struct {
	VpcID                  string
	SecurityGroupID        string
	Cidr                   string
	RestrictServerAccessTo string
	ServerAccessType       string
	Zones                  int
}

// Params are validated, typed deployment parameters.
type Params struct {
	Family            clusterconfig.Family
	Version           string
	DistributionURL   string
	DashboardsURL     string
	CPUArch           string
	SecurityDisabled  bool
	MinDistribution   bool
	Topology          Topology
	DataInstanceType  string
	MLInstanceType    string
	DataNodeStorage   int
	MLNodeStorage     int
	StorageVolumeType string
	JvmSysProps       string
	// AdditionalConfig and AdditionalOsdConfig are YAML converted from the JSON context values.
	AdditionalConfig    string
	AdditionalOsdConfig string
	Use50PercentHeap    bool
	IsInternal          bool
	CustomRoleArn       string
	Network             Network
	NetworkStackName    string
	InfraStackName      string
}

// Resolve validates the context and converts it to Params.
func (c *Context) Resolve() (*Params, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	family, err := clusterconfig.DetectFamily(c.DistributionURL)
	if err != nil {
		return nil, err
	}
	p := &Params{
		Family:            family,
		Version:           c.DistVersion,
		DistributionURL:   c.DistributionURL,
		DashboardsURL:     c.DashboardsURL,
		CPUArch:           c.CPUArch,
		SecurityDisabled:  c.SecurityDisabled == "true",
		MinDistribution:   c.MinDistribution == "true",
		DataNodeStorage:   c.DataNodeStorage,
		MLNodeStorage:     c.MLNodeStorage,
		StorageVolumeType: c.StorageVolumeType,
		JvmSysProps:       c.JvmSysProps,
		Use50PercentHeap:  c.Use50PercentHeap,
		IsInternal:        c.IsInternal,
		CustomRoleArn:     c.CustomRoleArn,
		Topology: Topology{
			SingleNode: c.SingleNodeCluster,
			Manager:    c.ManagerNodeCount,
			Data:       c.DataNodeCount,
			Client:     c.ClientNodeCount,
			Ingest:     c.IngestNodeCount,
			ML:         c.MLNodeCount,
			Zones:      c.NetworkAvailabilityZones,
		},
		Network: Network{
			VpcID:                  c.VpcID,
			SecurityGroupID:        c.SecurityGroupID,
			Cidr:                   c.Cidr,
			RestrictServerAccessTo: c.RestrictServerAccessTo,
			ServerAccessType:       c.ServerAccessType,
			Zones:                  c.NetworkAvailabilityZones,
		},
		NetworkStackName: stackName(NetworkStackBaseName, c.NetworkStackSuffix),
		InfraStackName:   stackName(InfraStackBaseName, c.Suffix),
	}
	if !p.Topology.SingleNode && p.Topology.Manager == 0 && p.Topology.Data == 0 {
		return nil, fmt.Errorf("%w: a multi-node cluster needs at least one manager or data node", ErrInvalidContext)
	}
	if (p.Network.ServerAccessType == "") != (p.Network.RestrictServerAccessTo == "") {
		return nil, fmt.Errorf("%w: serverAccessType and restrictServerAccessTo must be provided together", ErrInvalidContext)
	}
	if p.DataInstanceType, err = instanceType(c.DataInstanceType, c.CPUArch); err != nil {
		return nil, err
	}
	if p.MLInstanceType, err = instanceType(c.MLInstanceType, c.CPUArch); err != nil {
		return nil, err
	}
	if c.AdditionalConfig != "" {
		if p.AdditionalConfig, err = jsonToYAML("additionalConfig", c.AdditionalConfig); err != nil {
			return nil, err
		}
	}
	if c.AdditionalOsdConfig != "" {
		if p.AdditionalOsdConfig, err = jsonToYAML("additionalOsdConfig", c.AdditionalOsdConfig); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func stackName(base string, suffix string) string {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

// ClusterName is the engine cluster name, derived from the infra stack, account and region.
func (p *Params) ClusterName(account string, region string) string {
	return fmt.Sprintf("%s-%s-%s", p.InfraStackName, account, region)
}

// SecurityEnabled reports whether the engine serves TLS, which moves the load balancer listener to 443.
func (p *Params) SecurityEnabled() bool {
	return !p.SecurityDisabled && !p.MinDistribution
}

// StackNames returns the network and infra stack names without validating the rest of the context.
func (c *Context) StackNames() (network string, infra string) {
	return stackName(NetworkStackBaseName, c.NetworkStackSuffix), stackName(InfraStackBaseName, c.Suffix)
}

// SecurityEnabled is Params.SecurityEnabled for an unresolved context.
func (c *Context) SecurityEnabled() bool {
	return c.SecurityDisabled != "true" && c.MinDistribution != "true"
}
