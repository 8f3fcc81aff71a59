package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deploycontext"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/preflight"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/printer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/provision"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/shutdown"
)

type CheckUrlsCmd struct {
	Context ContextOpts     `group:"Deployment context"`
	Timeout time.Duration   `long:"timeout" description:"Timeout of each request" default:"30s"`
	Output  printer.Options `group:"Output"`
	Help    HelpCmd         `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *CheckUrlsCmd) Execute(args []string) error {
	cmd := []string{"check-urls"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	p, err := c.Context.Params()
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	results := checkURLs(ctx, p, c.Timeout)
	if err := printURLResults(os.Stdout, c.Output, results); err != nil {
		return Error(err, system, cmd, c, args)
	}
	return Error(preflight.Err(results), system, cmd, c, args)
}

// artifactTargets lists everything the nodes download during provisioning.
func artifactTargets(p *deploycontext.Params) []preflight.Target {
	targets := []preflight.Target{
		{Name: "distribution", URL: p.DistributionURL},
		{Name: "dashboards", URL: p.DashboardsURL},
	}
	if !p.Topology.SingleNode {
		plugin := provision.DiscoveryPluginSource(provision.Options{
			Family:          p.Family,
			DistributionURL: p.DistributionURL,
			Version:         p.Version,
			CPUArch:         p.CPUArch,
			MinDistribution: p.MinDistribution,
		})
		if strings.Contains(plugin, "://") {
			targets = append(targets, preflight.Target{Name: "discovery-ec2", URL: plugin})
		}
	}
	return targets
}

func checkURLs(ctx context.Context, p *deploycontext.Params, timeout time.Duration) []preflight.Result {
	return preflight.New(timeout).Check(ctx, artifactTargets(p))
}

func printURLResults(out io.Writer, opts printer.Options, results []preflight.Result) error {
	if opts.IsJSON() {
		type row struct {
			Name          string
			URL           string
			StatusCode    int
			ContentLength int64
			Error         string `json:",omitempty"`
		}
		rows := []row{}
		for _, r := range results {
			e := ""
			if r.Err != nil {
				e = r.Err.Error()
			}
			rows = append(rows, row{r.Name, r.URL, r.StatusCode, r.ContentLength, e})
		}
		return printer.JSON(out, opts.Output, rows)
	}
	t, err := printer.NewTable(opts)
	if err != nil {
		return err
	}
	rows := []table.Row{}
	for _, r := range results {
		status := t.Color.Good.Sprint("OK")
		if r.Err != nil {
			status = t.Color.Err.Sprint("FAIL")
		}
		size := "-"
		if r.ContentLength > 0 {
			size = fmt.Sprintf("%d MiB", r.ContentLength/1024/1024)
		}
		rows = append(rows, table.Row{r.Name, status, r.StatusCode, size, r.URL})
	}
	fmt.Fprintln(out, t.Render("ARTIFACTS", table.Row{"Name", "Result", "HTTP", "Size", "URL"}, rows))
	return nil
}
