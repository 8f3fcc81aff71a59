package stacks

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"net/netip"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/cfn"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deploycontext"
	"github.com/rglonek/logger"
)

var ErrNoSubnets = errors.New("no usable subnets found")

// SubnetLister is the part of the EC2 API used to look up an existing VPC.
type SubnetLister interface {
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
}

// Export names shared between the network and infra stacks.
func VpcExport(networkStack string) string { return networkStack + "-VpcId" }
func PrivateSubnetsExport(networkStack string) string { return networkStack + "-PrivateSubnetIds" }
func PublicSubnetsExport(networkStack string) string { return networkStack + "-PublicSubnetIds" }
func SecurityGroupExport(networkStack string) string { return networkStack + "-SecurityGroupId" }

// Network builds the network stack: either a new VPC spread over the requested
// zones, or a reference to the subnets of an existing VPC, plus the cluster security group.
func Network(ctx context.Context, log *logger.Logger, p *deploycontext.Params, subnets SubnetLister) (*cfn.Template, error) {
	if log == nil {
		log = logger.NewLogger()
	}
	t := cfn.New("Network resources for an OpenSearch cluster")
	name := p.NetworkStackName
	var vpcID any
	var private, public []any
	if p.Network.VpcID == "" {
		log.Detail("Creating new VPC from %s across %d zones", p.Network.Cidr, p.Network.Zones)
		var err error
		vpcID, private, public, err = newVpc(t, p.Network)
		if err != nil {
			return nil, err
		}
	} else {
		if subnets == nil {
			return nil, fmt.Errorf("vpcId %s given but no EC2 client available to look up its subnets", p.Network.VpcID)
		}
		log.Detail("Looking up subnets of %s", p.Network.VpcID)
		priv, pub, err := existingSubnets(ctx, subnets, p.Network.VpcID, p.Network.Zones)
		if err != nil {
			return nil, err
		}
		log.Detail("Using private subnets %v, public subnets %v", priv, pub)
		vpcID = p.Network.VpcID
		for _, s := range priv {
			private = append(private, s)
		}
		for _, s := range pub {
			public = append(public, s)
		}
	}

	var sgID any
	if p.Network.SecurityGroupID != "" {
		sgID = p.Network.SecurityGroupID
	} else {
		if err := securityGroup(t, vpcID, p.Network); err != nil {
			return nil, err
		}
		sgID = cfn.GetAtt("osSecurityGroup", "GroupId")
	}

	t.AddOutput("vpcId", vpcID, VpcExport(name))
	t.AddOutput("privateSubnetIds", cfn.Join(",", private...), PrivateSubnetsExport(name))
	if len(public) > 0 {
		t.AddOutput("publicSubnetIds", cfn.Join(",", public...), PublicSubnetsExport(name))
	}
	t.AddOutput("securityGroupId", sgID, SecurityGroupExport(name))
	return t, nil
}

// subnetBits returns the host bits of each of count equal subnets carved out of cidr.
func subnetBits(cidr string, count int) (int, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return 0, fmt.Errorf("invalid cidr %q: %w", cidr, err)
	}
	extra := bits.Len(uint(count - 1))
	newLen := prefix.Bits() + extra
	if newLen > 28 {
		return 0, fmt.Errorf("cidr %s is too small for %d subnets", cidr, count)
	}
	return 32 - newLen, nil
}

func newVpc(t *cfn.Template, n deploycontext.Network) (any, []any, []any, error) {
	hostBits, err := subnetBits(n.Cidr, n.Zones*2)
	if err != nil {
		return nil, nil, nil, err
	}
	t.Add("vpc", &cfn.Resource{
		Type: "AWS::EC2::VPC",
		Properties: map[string]any{
			"CidrBlock":          n.Cidr,
			"EnableDnsHostnames": true,
			"EnableDnsSupport":   true,
			"Tags":               []cfn.Tag{{Key: "Name", Value: cfn.Sub("${AWS::StackName}/vpc")}},
		},
	})
	t.Add("internetGateway", &cfn.Resource{Type: "AWS::EC2::InternetGateway"})
	t.Add("gatewayAttachment", &cfn.Resource{
		Type: "AWS::EC2::VPCGatewayAttachment",
		Properties: map[string]any{
			"VpcId":             cfn.Ref("vpc"),
			"InternetGatewayId": cfn.Ref("internetGateway"),
		},
	})
	t.Add("publicRouteTable", &cfn.Resource{
		Type:       "AWS::EC2::RouteTable",
		Properties: map[string]any{"VpcId": cfn.Ref("vpc")},
	})
	t.Add("publicDefaultRoute", &cfn.Resource{
		Type: "AWS::EC2::Route",
		Properties: map[string]any{
			"RouteTableId":         cfn.Ref("publicRouteTable"),
			"DestinationCidrBlock": "0.0.0.0/0",
			"GatewayId":            cfn.Ref("internetGateway"),
		},
		DependsOn: []string{"gatewayAttachment"},
	})
	blocks := cfn.Cidr(cfn.GetAtt("vpc", "CidrBlock"), n.Zones*2, hostBits)
	var private, public []any
	for i := 0; i < n.Zones; i++ {
		az := cfn.Select(i, cfn.GetAZs())
		pub := fmt.Sprintf("publicSubnet%d", i+1)
		priv := fmt.Sprintf("privateSubnet%d", i+1)
		t.Add(pub, &cfn.Resource{
			Type: "AWS::EC2::Subnet",
			Properties: map[string]any{
				"VpcId":               cfn.Ref("vpc"),
				"AvailabilityZone":    az,
				"CidrBlock":           cfn.Select(i, blocks),
				"MapPublicIpOnLaunch": true,
				"Tags":                []cfn.Tag{{Key: "Name", Value: cfn.Sub("${AWS::StackName}/" + pub)}},
			},
		})
		t.Add(pub+"RouteTableAssociation", &cfn.Resource{
			Type: "AWS::EC2::SubnetRouteTableAssociation",
			Properties: map[string]any{
				"SubnetId":     cfn.Ref(pub),
				"RouteTableId": cfn.Ref("publicRouteTable"),
			},
		})
		t.Add(pub+"Eip", &cfn.Resource{
			Type:       "AWS::EC2::EIP",
			Properties: map[string]any{"Domain": "vpc"},
			DependsOn:  []string{"gatewayAttachment"},
		})
		t.Add(pub+"NatGateway", &cfn.Resource{
			Type: "AWS::EC2::NatGateway",
			Properties: map[string]any{
				"SubnetId":     cfn.Ref(pub),
				"AllocationId": cfn.GetAtt(pub+"Eip", "AllocationId"),
			},
		})
		t.Add(priv, &cfn.Resource{
			Type: "AWS::EC2::Subnet",
			Properties: map[string]any{
				"VpcId":               cfn.Ref("vpc"),
				"AvailabilityZone":    az,
				"CidrBlock":           cfn.Select(n.Zones+i, blocks),
				"MapPublicIpOnLaunch": false,
				"Tags":                []cfn.Tag{{Key: "Name", Value: cfn.Sub("${AWS::StackName}/" + priv)}},
			},
		})
		t.Add(priv+"RouteTable", &cfn.Resource{
			Type:       "AWS::EC2::RouteTable",
			Properties: map[string]any{"VpcId": cfn.Ref("vpc")},
		})
		t.Add(priv+"DefaultRoute", &cfn.Resource{
			Type: "AWS::EC2::Route",
			Properties: map[string]any{
				"RouteTableId":         cfn.Ref(priv + "RouteTable"),
				"DestinationCidrBlock": "0.0.0.0/0",
				"NatGatewayId":         cfn.Ref(pub + "NatGateway"),
			},
		})
		t.Add(priv+"RouteTableAssociation", &cfn.Resource{
			Type: "AWS::EC2::SubnetRouteTableAssociation",
			Properties: map[string]any{
				"SubnetId":     cfn.Ref(priv),
				"RouteTableId": cfn.Ref(priv + "RouteTable"),
			},
		})
		private = append(private, cfn.Ref(priv))
		public = append(public, cfn.Ref(pub))
	}
	return cfn.Ref("vpc"), private, public, nil
}

// existingSubnets splits the subnets of vpcID by whether they map public IPs
// and keeps at most zones of each, one per availability zone.
func existingSubnets(ctx context.Context, lister SubnetLister, vpcID string, zones int) (private []string, public []string, err error) {
	all := []ec2types.Subnet{}
	paginator := ec2.NewDescribeSubnetsPaginator(lister, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{{Name: aws.String("vpc-id"), Values: []string{vpcID}}},
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("could not ec2.DescribeSubnets: %w", err)
		}
		all = append(all, out.Subnets...)
	}
	sort.Slice(all, func(i, j int) bool {
		if aws.ToString(all[i].AvailabilityZone) != aws.ToString(all[j].AvailabilityZone) {
			return aws.ToString(all[i].AvailabilityZone) < aws.ToString(all[j].AvailabilityZone)
		}
		return aws.ToString(all[i].SubnetId) < aws.ToString(all[j].SubnetId)
	})
	privZones := map[string]bool{}
	pubZones := map[string]bool{}
	for _, s := range all {
		az := aws.ToString(s.AvailabilityZone)
		if aws.ToBool(s.MapPublicIpOnLaunch) {
			if !pubZones[az] && len(public) < zones {
				pubZones[az] = true
				public = append(public, aws.ToString(s.SubnetId))
			}
			continue
		}
		if !privZones[az] && len(private) < zones {
			privZones[az] = true
			private = append(private, aws.ToString(s.SubnetId))
		}
	}
	if len(private) == 0 {
		return nil, nil, fmt.Errorf("%w: vpc %s has no private subnets", ErrNoSubnets, vpcID)
	}
	return private, public, nil
}

func securityGroup(t *cfn.Template, vpcID any, n deploycontext.Network) error {
	ingress := map[string]any{"IpProtocol": "-1", "Description": "server access"}
	switch n.ServerAccessType {
	case "":
		ingress["CidrIp"] = "0.0.0.0/0"
	case "ipv4":
		ingress["CidrIp"] = n.RestrictServerAccessTo
	case "ipv6":
		ingress["CidrIpv6"] = n.RestrictServerAccessTo
	case "prefixList":
		ingress["SourcePrefixListId"] = n.RestrictServerAccessTo
	case "securityGroupId":
		ingress["SourceSecurityGroupId"] = n.RestrictServerAccessTo
	default:
		return fmt.Errorf("unknown serverAccessType %q", n.ServerAccessType)
	}
	t.Add("osSecurityGroup", &cfn.Resource{
		Type: "AWS::EC2::SecurityGroup",
		Properties: map[string]any{
			"GroupDescription":     "Security group for the OpenSearch cluster nodes and load balancer",
			"VpcId":                vpcID,
			"SecurityGroupIngress": []any{ingress},
			"SecurityGroupEgress":  []any{map[string]any{"IpProtocol": "-1", "CidrIp": "0.0.0.0/0"}},
		},
	})
	t.Add("osSecurityGroupSelfIngress", &cfn.Resource{
		Type: "AWS::EC2::SecurityGroupIngress",
		Properties: map[string]any{
			"GroupId":               cfn.GetAtt("osSecurityGroup", "GroupId"),
			"SourceSecurityGroupId": cfn.GetAtt("osSecurityGroup", "GroupId"),
			"IpProtocol":            "-1",
			"Description":           "all traffic between cluster members",
		},
	})
	return nil
}

// splitImport turns a comma separated export back into a list.
func splitImport(exportName string) map[string]any {
	return cfn.Split(",", cfn.ImportValue(exportName))
}
