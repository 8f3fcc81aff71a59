// Package provision assembles the ordered shell steps that turn a freshly
// booted Amazon Linux instance into a running search engine node.
//
// Steps are rendered from embedded script templates and returned in the
// order they must run; callers hand them to cfn-init unchanged.
package provision

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/clusterconfig"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/structtags"
)

//go:embed scripts
var scripts embed.FS

const (
	// HomeDir is the working directory of every step.
	HomeDir = "/home/ec2-user"
	// AgentConfigPath is where the CloudWatch agent configuration file is installed.
	AgentConfigPath = "/opt/aws/amazon-cloudwatch-agent/etc/amazon-cloudwatch-agent.json"

	heredocMarker = "OSCLUSTER_EOF"
)

var ErrHeredocMarker = errors.New("configuration contains the heredoc terminator line")

// Step is a single shell command run by cfn-init.
type Step struct {
	Name         string `json:"name" yaml:"name"`
	Command      string `json:"command" yaml:"command"`
	Cwd          string `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	IgnoreErrors bool   `json:"ignoreErrors" yaml:"ignoreErrors"`
}

// Options describe one node group. EngineConfig is the rendered engine
// configuration file, role overlay included. InstallJava adds a JDK for
// distributions that do not bundle one (Elasticsearch 6.x).
type Options struct {
	Family                     clusterconfig.Family
	DistributionURL            string `required:"distributionUrl parameter is required. Please provide the artifact url to download"`
	DashboardsURL              string
	Version                    string
	CPUArch                    string
	SingleNode                 bool
	SecurityDisabled           bool
	MinDistribution            bool
	EngineConfig               string `required:"rendered engine configuration is required"`
	AdditionalDashboardsConfig string
	JvmSysProps                string
	Use50PercentHeap           bool
	InstallJava                bool
}

// Steps returns the provisioning steps for a node group, in execution order.
func Steps(opts Options) ([]Step, error) {
	if err := structtags.CheckRequired(opts); err != nil {
		return nil, err
	}
	if opts.Family == "" {
		family, err := clusterconfig.DetectFamily(opts.DistributionURL)
		if err != nil {
			return nil, err
		}
		opts.Family = family
	}
	b := &builder{opts: opts, engine: opts.Family.Product(), dashboards: opts.Family.Dashboards()}
	switch opts.Family {
	case clusterconfig.FamilyOpenSearch:
		b.openSearch()
	case clusterconfig.FamilyElasticsearch:
		b.elasticsearch()
	default:
		return nil, fmt.Errorf("%w: family %q", clusterconfig.ErrUnknownDistribution, opts.Family)
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.steps, nil
}

// DiscoveryPluginSource returns what to pass to the plugin installer for discovery-ec2.
// CI and minimal distributions do not bundle the plugin in the public repository, so
// it is fetched from the matching CI build instead.
func DiscoveryPluginSource(opts Options) string {
	if opts.Family == clusterconfig.FamilyOpenSearch && (strings.Contains(opts.DistributionURL, "ci.opensearch.org") || opts.MinDistribution) {
		return fmt.Sprintf("https://ci.opensearch.org/ci/dbc/distribution-build-opensearch/%s/latest/linux/%s/tar/builds/opensearch/core-plugins/discovery-ec2-%s.zip",
			opts.Version, opts.CPUArch, opts.Version)
	}
	return "discovery-ec2"
}

type builder struct {
	opts       Options
	engine     string
	dashboards string
	steps      []Step
	err        error
}

func (b *builder) add(name string, scriptFile string, data map[string]any, cwd string) {
	if b.err != nil {
		return
	}
	command, err := processTemplate(scriptFile, data)
	if err != nil {
		b.err = fmt.Errorf("step %s: %w", name, err)
		return
	}
	b.steps = append(b.steps, Step{Name: name, Command: command, Cwd: cwd})
}

func (b *builder) addWrite(name string, dir string, file string, content string, appendTo bool) {
	if b.err != nil {
		return
	}
	content = strings.TrimRight(content, "\n")
	for _, line := range strings.Split(content, "\n") {
		if line == heredocMarker {
			b.err = fmt.Errorf("step %s: %w", name, ErrHeredocMarker)
			return
		}
	}
	b.add(name, "write-file.sh.tpl", map[string]any{
		"Dir":     dir,
		"File":    file,
		"Append":  appendTo,
		"Marker":  heredocMarker,
		"Content": content,
	}, HomeDir)
}

func (b *builder) agentAndSysctl() {
	b.add("cwagent-stop", "cwagent-stop.sh.tpl", nil, "")
	b.add("cwagent-start", "cwagent-start.sh.tpl", map[string]any{"AgentConfigPath": AgentConfigPath}, "")
	b.add("sysctl", "sysctl.sh.tpl", nil, "")
}

func (b *builder) fetch() {
	b.add("fetch-engine", "fetch.sh.tpl", map[string]any{"Dir": b.engine, "URL": b.opts.DistributionURL}, HomeDir)
	if b.opts.DashboardsURL != "" {
		b.add("fetch-dashboards", "fetch.sh.tpl", map[string]any{"Dir": b.dashboards, "URL": b.opts.DashboardsURL}, HomeDir)
	}
	b.steps = append(b.steps, Step{Name: "settle", Command: "sleep 15"})
	if b.opts.DashboardsURL != "" {
		b.add("dashboards-host", "dashboards-host.sh.tpl", map[string]any{"Dir": b.dashboards, "File": b.opts.Family.DashboardsConfigFile()}, HomeDir)
	}
}

func (b *builder) config() {
	b.addWrite("write-config", b.engine, b.opts.Family.ConfigFile(), b.opts.EngineConfig, false)
	if !b.opts.SingleNode {
		b.add("install-discovery-plugin", "plugin-install.sh.tpl", map[string]any{"Dir": b.engine, "Plugin": DiscoveryPluginSource(b.opts)}, HomeDir)
	}
}

func (b *builder) tail(startExec string) {
	if b.opts.DashboardsURL != "" && b.opts.AdditionalDashboardsConfig != "" {
		b.addWrite("append-dashboards-config", b.dashboards, b.opts.Family.DashboardsConfigFile(), b.opts.AdditionalDashboardsConfig, true)
	}
	if b.opts.JvmSysProps != "" {
		b.add("jvm-sys-props", "jvm-sys-props.sh.tpl", map[string]any{"Dir": b.engine, "Props": b.opts.JvmSysProps}, HomeDir)
	}
	if b.opts.Use50PercentHeap {
		b.add("heap-50-percent", "heap.sh.tpl", map[string]any{"Dir": b.engine}, HomeDir)
	}
	b.add("start-engine", "start.sh.tpl", map[string]any{"Dir": b.engine, "Exec": startExec, "Append": true, "Log": "install.log"}, HomeDir)
	if b.opts.DashboardsURL != "" {
		b.add("start-dashboards", "start.sh.tpl", map[string]any{"Dir": b.dashboards, "Exec": "./bin/" + b.dashboards, "Append": false, "Log": "dashboard_install.log"}, HomeDir)
	}
}

func (b *builder) openSearch() {
	b.agentAndSysctl()
	b.fetch()
	b.config()
	if b.opts.SecurityDisabled && !b.opts.MinDistribution {
		b.addWrite("disable-security", b.engine, b.opts.Family.ConfigFile(), "plugins.security.disabled: true", true)
		if b.opts.DashboardsURL != "" {
			b.add("disable-dashboards-security", "dashboards-security.sh.tpl", map[string]any{"Dir": b.dashboards, "File": b.opts.Family.DashboardsConfigFile()}, HomeDir)
		}
	}
	if b.opts.MinDistribution {
		b.tail("./bin/opensearch")
	} else {
		b.tail("./opensearch-tar-install.sh")
	}
}

// elasticsearch OSS has no minimal distribution and no security plugin to disable
func (b *builder) elasticsearch() {
	b.agentAndSysctl()
	if b.opts.InstallJava {
		b.add("install-java", "java.sh.tpl", nil, "")
	}
	b.fetch()
	b.config()
	b.tail("./bin/elasticsearch")
}

func processTemplate(scriptFile string, data map[string]any) (string, error) {
	script, err := scripts.ReadFile("scripts/" + scriptFile)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New("script").Option("missingkey=error").Parse(string(script))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
