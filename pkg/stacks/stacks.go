// Package stacks assembles the CloudFormation templates of a cluster deployment.
package stacks

import (
	"context"
	"fmt"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/cfn"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deploycontext"
	"github.com/rglonek/logger"
)

type Input struct {
	Params  *deploycontext.Params
	Account string
	Region  string
	// Subnets is only called when the deployment reuses an existing VPC.
	Subnets SubnetLister
}

// Stacks are the synthesized templates in deployment order.
type Stacks struct {
	NetworkName string
	Network     *cfn.Template
	InfraName   string
	Infra       *cfn.Template
	ClusterName string
}

func Synthesize(ctx context.Context, log *logger.Logger, in Input) (*Stacks, error) {
	if log == nil {
		log = logger.NewLogger()
	}
	if in.Account == "" || in.Region == "" {
		return nil, fmt.Errorf("account and region are required to name the cluster")
	}
	p := in.Params
	clusterName := p.ClusterName(in.Account, in.Region)
	log.Info("Synthesizing %s and %s for cluster %s", p.NetworkStackName, p.InfraStackName, clusterName)
	network, err := Network(ctx, log, p, in.Subnets)
	if err != nil {
		return nil, fmt.Errorf("network stack: %w", err)
	}
	if _, ok := network.Outputs["publicSubnetIds"]; !ok && !p.IsInternal {
		return nil, fmt.Errorf("network stack: %w: an internet-facing load balancer needs public subnets, set isInternal=true", ErrNoSubnets)
	}
	infra, err := Infra(log, p, clusterName)
	if err != nil {
		return nil, fmt.Errorf("infra stack: %w", err)
	}
	return &Stacks{
		NetworkName: p.NetworkStackName,
		Network:     network,
		InfraName:   p.InfraStackName,
		Infra:       infra,
		ClusterName: clusterName,
	}, nil
}

// Ordered returns the stacks in deployment order; deletion runs in reverse.
func (s *Stacks) Ordered() []Named {
	return []Named{{Name: s.NetworkName, Template: s.Network}, {Name: s.InfraName, Template: s.Infra}}
}

type Named struct {
	Name     string
	Template *cfn.Template
}
