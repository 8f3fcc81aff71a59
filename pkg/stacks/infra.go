package stacks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/cfn"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/clusterconfig"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/cwagent"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deploycontext"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/provision"
	"github.com/rglonek/logger"
)

const (
	rootDevice         = "/dev/xvda"
	defaultVolumeSize  = 50
	signalTimeout      = "PT15M"
	loadBalancerID     = "publicNlb"
	LoadBalancerOutput = "loadbalancerurl"
	LoadBalancerExport = "Loadbalancer-URL"
)

var managedPolicies = []string{"AmazonEC2ReadOnlyAccess", "CloudWatchAgentServerPolicy", "AmazonSSMManagedInstanceCore"}

type asgTag struct {
	Key               string `json:"Key" yaml:"Key"`
	Value             any    `json:"Value" yaml:"Value"`
	PropagateAtLaunch bool   `json:"PropagateAtLaunch" yaml:"PropagateAtLaunch"`
}

// Infra builds the infra stack: log groups, instance role, one launch template
// and auto scaling group per node group, and the network load balancer.
func Infra(log *logger.Logger, p *deploycontext.Params, clusterName string) (*cfn.Template, error) {
	if log == nil {
		log = logger.NewLogger()
	}
	gen, err := clusterconfig.ForEngine(p.Family, p.Version)
	if err != nil {
		return nil, err
	}
	log.Detail("Using %s cluster configuration for %s %s", gen.Version(), p.Family, p.Version)
	if msg := quorumWarning(gen, p.Topology); msg != "" {
		log.Warn("%s", msg)
	}

	t := cfn.New("Compute resources for an OpenSearch cluster")
	t.AddParameter("amiId", &cfn.Parameter{
		Type:        "AWS::SSM::Parameter::Value<AWS::EC2::Image::Id>",
		Default:     fmt.Sprintf("/aws/service/ami-amazon-linux-latest/amzn2-ami-hvm-%s-gp2", deploycontext.AmiArch(p.CPUArch)),
		Description: "Amazon Linux 2 image",
	})
	logGroups(t)
	instanceProfile(t, p.CustomRoleArn)

	groups := p.Topology.Groups()
	clientGroup := p.Topology.ClientGroupID()
	for _, g := range groups {
		steps, err := GroupSteps(p, gen, clusterName, g)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.ID, err)
		}
		agent, err := cwagent.New(p.Family.Product(), clusterName, p.Family == clusterconfig.FamilyElasticsearch).JSON()
		if err != nil {
			return nil, err
		}
		log.Debug("%s: capacity=%d role=%s steps=%d", g.ID, g.Capacity, g.RoleTag, len(steps))
		nodeGroup(t, p, g, steps, agent, g.ID == clientGroup)
	}
	loadBalancer(t, p)
	t.AddOutput(LoadBalancerOutput, cfn.GetAtt(loadBalancerID, "DNSName"), LoadBalancerExport)
	return t, nil
}

// quorumWarning is non-empty when zen quorum discovery runs with an even manager count.
func quorumWarning(gen clusterconfig.Generator, t deploycontext.Topology) string {
	if gen.Version() != clusterconfig.QuorumVersion || t.SingleNode || t.Manager == 0 || t.Manager%2 != 0 {
		return ""
	}
	return fmt.Sprintf("managerNodeCount=%d is even; minimum_master_nodes=%d does not give a strict majority of manager nodes",
		t.Manager, clusterconfig.MinimumMasterNodes(t.Manager))
}

// GroupSteps renders the engine configuration and provisioning steps of one node group.
func GroupSteps(p *deploycontext.Params, gen clusterconfig.Generator, clusterName string, g deploycontext.Group) ([]provision.Step, error) {
	opts := []clusterconfig.Option{clusterconfig.WithAdditionalConfig(p.AdditionalConfig)}
	if g.Role != nil {
		opts = append(opts, clusterconfig.WithRole(*g.Role))
	}
	config, err := gen.GetConfig(clusterName, p.Topology.SingleNode, p.InfraStackName, p.Topology.Manager, opts...)
	if err != nil {
		return nil, err
	}
	return provision.Steps(provision.Options{
		Family:                     p.Family,
		DistributionURL:            p.DistributionURL,
		DashboardsURL:              p.DashboardsURL,
		Version:                    p.Version,
		CPUArch:                    p.CPUArch,
		SingleNode:                 p.Topology.SingleNode,
		SecurityDisabled:           p.SecurityDisabled,
		MinDistribution:            p.MinDistribution,
		EngineConfig:               config,
		AdditionalDashboardsConfig: p.AdditionalOsdConfig,
		JvmSysProps:                p.JvmSysProps,
		Use50PercentHeap:           p.Use50PercentHeap,
		InstallJava:                gen.Version() == clusterconfig.QuorumVersion,
	})
}

func logGroups(t *cfn.Template) {
	for id, name := range map[string]string{
		"opensearchLogGroup":    cwagent.ClusterLogGroup,
		"loggingPluginLogGroup": cwagent.LoggingPluginLogGroup,
	} {
		t.Add(id, &cfn.Resource{
			Type: "AWS::Logs::LogGroup",
			Properties: map[string]any{
				"LogGroupName":    name,
				"RetentionInDays": 30,
			},
			DeletionPolicy:      "Delete",
			UpdateReplacePolicy: "Delete",
		})
	}
}

// roleName extracts the role name from a role ARN, dropping any path.
func roleName(arn string) string {
	return arn[strings.LastIndex(arn, "/")+1:]
}

func instanceProfile(t *cfn.Template, customRoleArn string) {
	var role any
	if customRoleArn != "" {
		role = roleName(customRoleArn)
	} else {
		arns := []any{}
		for _, policy := range managedPolicies {
			arns = append(arns, cfn.Sub("arn:${AWS::Partition}:iam::aws:policy/"+policy))
		}
		t.Add("instanceRole", &cfn.Resource{
			Type: "AWS::IAM::Role",
			Properties: map[string]any{
				"AssumeRolePolicyDocument": map[string]any{
					"Version": "2012-10-17",
					"Statement": []any{map[string]any{
						"Effect":    "Allow",
						"Principal": map[string]any{"Service": "ec2.amazonaws.com"},
						"Action":    "sts:AssumeRole",
					}},
				},
				"ManagedPolicyArns": arns,
			},
		})
		role = cfn.Ref("instanceRole")
	}
	t.Add("instanceProfile", &cfn.Resource{
		Type:       "AWS::IAM::InstanceProfile",
		Properties: map[string]any{"Roles": []any{role}},
	})
}

func instanceTypeFor(p *deploycontext.Params, kind deploycontext.GroupKind) string {
	switch kind {
	case deploycontext.KindData:
		return p.DataInstanceType
	case deploycontext.KindML:
		return p.MLInstanceType
	}
	return deploycontext.DefaultInstanceType(p.CPUArch)
}

func volumeSizeFor(p *deploycontext.Params, kind deploycontext.GroupKind) int {
	switch kind {
	case deploycontext.KindData:
		return p.DataNodeStorage
	case deploycontext.KindML:
		return p.MLNodeStorage
	}
	return defaultVolumeSize
}

func launchTemplateID(groupID string) string {
	return strings.TrimSuffix(groupID, "Asg") + "LaunchTemplate"
}

func nodeGroup(t *cfn.Template, p *deploycontext.Params, g deploycontext.Group, steps []provision.Step, agentConfig string, isClientTarget bool) {
	ltID := launchTemplateID(g.ID)
	init := cfn.NewInit().
		Package("yum", "amazon-cloudwatch-agent").
		File(provision.AgentConfigPath, agentConfig, "000644")
	for _, s := range steps {
		init.Command(s.Name, s.Command, s.Cwd, s.IgnoreErrors)
	}
	t.Add(ltID, &cfn.Resource{
		Type:     "AWS::EC2::LaunchTemplate",
		Metadata: init.Metadata(),
		Properties: map[string]any{
			"LaunchTemplateData": map[string]any{
				"ImageId":            cfn.Ref("amiId"),
				"InstanceType":       instanceTypeFor(p, g.Kind),
				"IamInstanceProfile": map[string]any{"Arn": cfn.GetAtt("instanceProfile", "Arn")},
				"SecurityGroupIds":   []any{cfn.ImportValue(SecurityGroupExport(p.NetworkStackName))},
				"BlockDeviceMappings": []any{map[string]any{
					"DeviceName": rootDevice,
					"Ebs": map[string]any{
						"VolumeSize":          volumeSizeFor(p, g.Kind),
						"VolumeType":          p.StorageVolumeType,
						"DeleteOnTermination": true,
					},
				}},
				"UserData": cfn.UserData(ltID, g.ID),
			},
		},
	})
	capacity := strconv.Itoa(g.Capacity)
	props := map[string]any{
		"MinSize":         capacity,
		"MaxSize":         capacity,
		"DesiredCapacity": capacity,
		"LaunchTemplate": map[string]any{
			"LaunchTemplateId": cfn.Ref(ltID),
			"Version":          cfn.GetAtt(ltID, "LatestVersionNumber"),
		},
		"VPCZoneIdentifier": splitImport(PrivateSubnetsExport(p.NetworkStackName)),
		"Tags": []asgTag{
			// discovery-ec2 selects seed and manager nodes by this name
			{Key: "Name", Value: p.InfraStackName + "/" + g.ID, PropagateAtLaunch: true},
			{Key: "role", Value: g.RoleTag, PropagateAtLaunch: true},
		},
	}
	if isClientTarget {
		props["TargetGroupARNs"] = []any{cfn.Ref("opensearchTarget"), cfn.Ref("dashboardsTarget")}
	}
	asg := &cfn.Resource{
		Type:       "AWS::AutoScaling::AutoScalingGroup",
		Properties: props,
	}
	if g.Capacity > 0 {
		asg.CreationPolicy = &cfn.CreationPolicy{ResourceSignal: &cfn.ResourceSignal{Count: g.Capacity, Timeout: signalTimeout}}
	}
	t.Add(g.ID, asg)
}

func loadBalancer(t *cfn.Template, p *deploycontext.Params) {
	scheme := "internet-facing"
	subnets := splitImport(PublicSubnetsExport(p.NetworkStackName))
	if p.IsInternal {
		scheme = "internal"
		subnets = splitImport(PrivateSubnetsExport(p.NetworkStackName))
	}
	t.Add(loadBalancerID, &cfn.Resource{
		Type: "AWS::ElasticLoadBalancingV2::LoadBalancer",
		Properties: map[string]any{
			"Type":    "network",
			"Scheme":  scheme,
			"Subnets": subnets,
		},
	})
	enginePort := 80
	if p.SecurityEnabled() {
		enginePort = 443
	}
	for _, l := range []struct {
		name       string
		port       int
		targetPort int
	}{
		{"opensearch", enginePort, 9200},
		{"dashboards", 8443, 5601},
	} {
		t.Add(l.name+"Target", &cfn.Resource{
			Type: "AWS::ElasticLoadBalancingV2::TargetGroup",
			Properties: map[string]any{
				"Port":       l.targetPort,
				"Protocol":   "TCP",
				"TargetType": "instance",
				"VpcId":      cfn.ImportValue(VpcExport(p.NetworkStackName)),
			},
		})
		t.Add(l.name+"Listener", &cfn.Resource{
			Type: "AWS::ElasticLoadBalancingV2::Listener",
			Properties: map[string]any{
				"LoadBalancerArn": cfn.Ref(loadBalancerID),
				"Port":            l.port,
				"Protocol":        "TCP",
				"DefaultActions": []any{map[string]any{
					"Type":           "forward",
					"TargetGroupArn": cfn.Ref(l.name + "Target"),
				}},
			},
		})
	}
}
