package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deployer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deploycontext"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/preflight"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/printer"
	"github.com/rglonek/logger"
	"github.com/stretchr/testify/require"
)

var basePairs = []string{
	"distVersion=2.11.0",
	"distributionUrl=https://artifacts.opensearch.org/releases/bundle/opensearch/2.11.0/opensearch-2.11.0-linux-x64.tar.gz",
	"dashboardsUrl=https://artifacts.opensearch.org/releases/bundle/opensearch-dashboards/2.11.0/opensearch-dashboards-2.11.0-linux-x64.tar.gz",
	"cpuArch=x64",
	"securityDisabled=false",
	"minDistribution=false",
}

func contextOpts(extra ...string) ContextOpts {
	return ContextOpts{Pairs: append(append([]string{}, basePairs...), extra...)}
}

func testParams(t *testing.T, extra ...string) *deploycontext.Params {
	t.Helper()
	o := contextOpts(extra...)
	p, err := o.Params()
	require.NoError(t, err)
	return p
}

func testSystem(region string) *System {
	s := &System{Logger: logger.NewLogger(), Opts: &Commands{}}
	s.Opts.Config.Aws.Region = region
	return s
}

func TestRenderConfig(t *testing.T) {
	c := &RenderConfigCmd{Family: "opensearch", Version: "2.11.0", ClusterName: "demo", StackName: "demo-infra", ManagerCount: 3, Role: "manager"}
	conf, err := c.Render()
	require.NoError(t, err)
	require.Contains(t, conf, "cluster.name: demo")
	require.Contains(t, conf, "node.roles")

	c.SingleNode = true
	c.Role = ""
	conf, err = c.Render()
	require.NoError(t, err)
	require.Contains(t, conf, "discovery.type: single-node")

	c.Family = "solr"
	_, err = c.Render()
	require.Error(t, err)
}

func TestStepsForRole(t *testing.T) {
	p := testParams(t)
	c := &StepsCmd{Role: "data", Output: "text", ClusterName: "demo"}
	steps, err := c.Steps(p)
	require.NoError(t, err)
	require.NotEmpty(t, steps)
	found := false
	for _, s := range steps {
		if strings.Contains(s.Command, "cluster.name: demo") {
			found = true
		}
	}
	require.True(t, found, "configuration step missing")

	out := &bytes.Buffer{}
	require.NoError(t, c.print(out, steps))
	require.True(t, strings.HasPrefix(out.String(), "### 000 "))

	c.Output = "json"
	out.Reset()
	require.NoError(t, c.print(out, steps))
	decoded := []map[string]any{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, len(steps))

	c.Role = "ml"
	_, err = c.Steps(p)
	require.ErrorContains(t, err, "no node group")

	c.Role = "nope"
	_, err = c.Steps(p)
	require.Error(t, err)
}

func TestStepsSingleNodeIgnoresRole(t *testing.T) {
	p := testParams(t, "singleNodeCluster=true")
	c := &StepsCmd{Role: "ml", Output: "text"}
	steps, err := c.Steps(p)
	require.NoError(t, err)
	require.NotEmpty(t, steps)
}

func TestSynthWritesTemplates(t *testing.T) {
	dir := t.TempDir()
	c := &SynthCmd{Context: contextOpts(), Account: "123456789012", Format: "json"}
	p, err := c.Context.Params()
	require.NoError(t, err)
	st, err := testSystem("us-east-1").synthesize(context.Background(), p, c.Account, nil)
	require.NoError(t, err)
	require.Equal(t, "opensearch-infra-stack-123456789012-us-east-1", st.ClusterName)

	files, err := writeTemplates(st, dir, "json")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "opensearch-network-stack.template.json"),
		filepath.Join(dir, "opensearch-infra-stack.template.json"),
	}, files)
	body, err := os.ReadFile(files[1])
	require.NoError(t, err)
	doc := map[string]any{}
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Contains(t, doc, "Resources")

	files, err = writeTemplates(st, dir, "yaml")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(files[0], ".template.yaml"))
}

func TestDestroyStackNames(t *testing.T) {
	c := &DestroyCmd{Context: contextOpts("suffix=dev")}
	names, err := c.stackNames()
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Contains(t, names[0], "infra")
	require.Contains(t, names[1], "network")

	c.KeepNetwork = true
	names, err = c.stackNames()
	require.NoError(t, err)
	require.Len(t, names, 1)
	require.Contains(t, names[0], "infra")
}

func TestConfirm(t *testing.T) {
	out := &bytes.Buffer{}
	require.True(t, confirm(strings.NewReader("yes\n"), out, []string{"a", "b"}))
	require.Contains(t, out.String(), "a, b")
	require.False(t, confirm(strings.NewReader("y\n"), out, []string{"a"}))
	require.False(t, confirm(strings.NewReader(""), out, []string{"a"}))
}

func TestEndpoint(t *testing.T) {
	require.Equal(t, "https://lb.example.com", endpoint("lb.example.com", true))
	require.Equal(t, "http://lb.example.com", endpoint("lb.example.com", false))
}

func TestArtifactTargets(t *testing.T) {
	targets := artifactTargets(testParams(t))
	names := []string{}
	for _, tg := range targets {
		names = append(names, tg.Name)
	}
	require.Equal(t, []string{"distribution", "dashboards"}, names[:2])

	single := artifactTargets(testParams(t, "singleNodeCluster=true"))
	require.Len(t, single, 2)
}

func TestPrintURLResults(t *testing.T) {
	results := []preflight.Result{
		{Target: preflight.Target{Name: "distribution", URL: "https://example.com/a.tar.gz"}, StatusCode: 200, ContentLength: 3 * 1024 * 1024},
		{Target: preflight.Target{Name: "dashboards", URL: "https://example.com/b.tar.gz"}, StatusCode: 404, Err: errors.New("not found")},
	}
	out := &bytes.Buffer{}
	require.NoError(t, printURLResults(out, printer.Options{Output: "csv", Theme: "default", NoColor: true}, results))
	require.Contains(t, out.String(), "3 MiB")
	require.Contains(t, out.String(), "FAIL")

	out.Reset()
	require.NoError(t, printURLResults(out, printer.Options{Output: "json"}, results))
	rows := []map[string]any{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "not found", rows[1]["Error"])
	require.NotContains(t, rows[0], "Error")
}

func TestPrintOutputs(t *testing.T) {
	outputs := map[string][]deployer.Output{
		"infra":   {{Key: "loadbalancerurl", Value: "lb.example.com", ExportName: "Loadbalancer-URL"}},
		"network": {{Key: "vpcId", Value: "vpc-1"}},
	}
	out := &bytes.Buffer{}
	require.NoError(t, printOutputs(out, printer.Options{Output: "csv", Theme: "default", NoColor: true}, outputs))
	text := out.String()
	require.Less(t, strings.Index(text, "lb.example.com"), strings.Index(text, "vpc-1"))

	out.Reset()
	require.NoError(t, printOutputs(out, printer.Options{Output: "json"}, outputs))
	decoded := map[string][]deployer.Output{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, outputs, decoded)
}

func TestConfigAwsSave(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "conf")
	t.Setenv("OSCLUSTER_CONFIG_FILE", cfg)
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"oscluster", "config", "aws", "--profile", "dev", "--region", "eu-west-1", "--template-bucket", "tpl", "--save"}
	c := &ConfigAwsCmd{}
	require.NoError(t, c.Execute(nil))
	body, err := os.ReadFile(cfg)
	require.NoError(t, err)
	require.Contains(t, string(body), "eu-west-1")

	system, err := Initialize(&Init{}, nil, nil, "config", "aws")
	require.NoError(t, err)
	a := system.Opts.Config.Aws
	require.Equal(t, "dev", a.Profile)
	require.Equal(t, "eu-west-1", a.Region)
	require.Equal(t, "tpl", a.TemplateBucket)
	require.False(t, a.Save)
	require.Equal(t, "eu-west-1", system.auth().Region)
}
