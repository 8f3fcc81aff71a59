package cfn

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testTemplate() *Template {
	t := New("test stack")
	t.Add("vpc", &Resource{
		Type:       "AWS::EC2::VPC",
		Properties: map[string]any{"CidrBlock": "10.0.0.0/16"},
	})
	t.Add("subnet", &Resource{
		Type: "AWS::EC2::Subnet",
		Properties: map[string]any{
			"VpcId":            Ref("vpc"),
			"AvailabilityZone": Select(0, GetAZs()),
			"Tags":             []Tag{{Key: "Name", Value: Sub("${AWS::StackName}-subnet")}},
		},
		DependsOn: []string{"vpc"},
	})
	t.AddOutput("vpcId", Ref("vpc"), "vpc-export")
	t.AddOutput("cidr", GetAtt("vpc", "CidrBlock"), "")
	return t
}

func TestTemplateJSON(t *testing.T) {
	out, err := testTemplate().JSON()
	require.NoError(t, err)
	doc := map[string]any{}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Equal(t, FormatVersion, doc["AWSTemplateFormatVersion"])
	resources := doc["Resources"].(map[string]any)
	subnet := resources["subnet"].(map[string]any)
	props := subnet["Properties"].(map[string]any)
	require.Equal(t, map[string]any{"Ref": "vpc"}, props["VpcId"])
	require.Equal(t, map[string]any{"Fn::Select": []any{float64(0), map[string]any{"Fn::GetAZs": ""}}}, props["AvailabilityZone"])
	outputs := doc["Outputs"].(map[string]any)
	require.Equal(t, map[string]any{"Name": "vpc-export"}, outputs["vpcId"].(map[string]any)["Export"])
	require.NotContains(t, outputs["cidr"].(map[string]any), "Export")
	require.NotContains(t, doc, "Parameters")
}

func TestTemplateYAML(t *testing.T) {
	out, err := testTemplate().Render("yaml")
	require.NoError(t, err)
	require.Contains(t, string(out), "Fn::GetAtt")
	doc := map[string]any{}
	require.NoError(t, yaml.Unmarshal(out, &doc))
	require.Contains(t, doc["Resources"], "vpc")

	_, err = testTemplate().Render("toml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestInitCommandOrder(t *testing.T) {
	init := NewInit().
		Package("yum", "amazon-cloudwatch-agent").
		File("/etc/agent.json", "{}", "000644")
	names := []string{"stop", "start", "sysctl", "fetch", "b", "a", "c", "d", "e", "f", "g", "h"}
	for _, n := range names {
		init.Command(n, "echo "+n, "/home/ec2-user", false)
	}
	keys := init.CommandKeys()
	require.Len(t, keys, len(names))
	require.Equal(t, "000_stop", keys[0])
	require.Equal(t, "011_h", keys[11])
	for i := 1; i < len(keys); i++ {
		require.Less(t, keys[i-1], keys[i])
	}

	md := init.Metadata()["AWS::CloudFormation::Init"].(map[string]any)
	config := md["config"].(map[string]any)
	require.Equal(t, map[string]map[string][]string{"yum": {"amazon-cloudwatch-agent": {}}}, config["packages"])
	cmds := config["commands"].(map[string]any)
	require.Equal(t, "echo b", cmds["004_b"].(map[string]any)["command"])
	require.Equal(t, "/home/ec2-user", cmds["004_b"].(map[string]any)["cwd"])
}

func TestUserData(t *testing.T) {
	ud := UserData("dataNodeLaunchTemplate", "dataNodeAsg")
	script := ud["Fn::Base64"].(map[string]any)["Fn::Sub"].(string)
	require.True(t, strings.HasPrefix(script, "#!/bin/bash\n"))
	require.Contains(t, script, "--resource dataNodeLaunchTemplate -c default")
	require.Contains(t, script, "cfn-signal -e $? --region ${AWS::Region} --stack ${AWS::StackName} --resource dataNodeAsg")
}
