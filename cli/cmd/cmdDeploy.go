package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deployer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/preflight"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/printer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/shutdown"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/stacks"
)

type DeployCmd struct {
	Context      ContextOpts     `group:"Deployment context"`
	Account      string          `long:"account" description:"AWS account id used in the cluster name; looked up through STS when empty"`
	SkipURLCheck bool            `long:"skip-url-check" description:"Do not check that the artifact urls are reachable before deploying"`
	Timeout      time.Duration   `long:"timeout" description:"Maximum time to wait for each stack" default:"60m"`
	Output       printer.Options `group:"Output"`
	Help         HelpCmd         `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *DeployCmd) Execute(args []string) error {
	cmd := []string{"deploy"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	system.Logger.Info("Running %s", strings.Join(cmd, "."))
	err = c.Deploy(system, os.Stdout)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	system.Logger.Info("Done")
	return nil
}

func (c *DeployCmd) Deploy(system *System, out io.Writer) error {
	p, err := c.Context.Params()
	if err != nil {
		return err
	}
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	shutdown.AddCleanupJob("deploy", func(isSignal bool) {
		if isSignal {
			system.Logger.Warn("Interrupted; CloudFormation continues the current stack operation, run destroy to remove it")
		}
	})
	defer shutdown.DeleteCleanupJob("deploy")

	if !c.SkipURLCheck {
		system.Logger.Info("Checking artifact urls")
		if err := preflight.Err(checkURLs(ctx, p, 30*time.Second)); err != nil {
			return fmt.Errorf("%w (use --skip-url-check to deploy anyway)", err)
		}
	}

	clients, err := system.connect(ctx)
	if err != nil {
		return err
	}
	st, err := system.synthesize(ctx, p, c.Account, clients)
	if err != nil {
		return err
	}
	d := deployer.New(clients.CloudFormation, system.Logger, deployer.WithWaitTimeout(c.Timeout),
		deployer.WithTemplateBucket(clients.S3, system.Opts.Config.Aws.TemplateBucket, clients.Region))
	outputs, err := deployStacks(ctx, d, st)
	if err != nil {
		return err
	}
	system.Logger.Info("Cluster %s deployed", st.ClusterName)
	return printOutputs(out, c.Output, outputs)
}

// deployStacks deploys the stacks in order; the infra stack imports the network stack's exports.
func deployStacks(ctx context.Context, d *deployer.Deployer, st *stacks.Stacks) (map[string][]deployer.Output, error) {
	all := map[string][]deployer.Output{}
	for _, s := range st.Ordered() {
		body, err := s.Template.CompactJSON()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		outputs, err := d.Deploy(ctx, s.Name, string(body))
		if err != nil {
			return nil, err
		}
		all[s.Name] = outputs
	}
	return all, nil
}

func printOutputs(out io.Writer, opts printer.Options, outputs map[string][]deployer.Output) error {
	if opts.IsJSON() {
		return printer.JSON(out, opts.Output, outputs)
	}
	if len(opts.SortBy) == 0 {
		opts.SortBy = []string{"Stack:asc", "Output:asc"}
	}
	t, err := printer.NewTable(opts)
	if err != nil {
		return err
	}
	rows := []table.Row{}
	for stack, list := range outputs {
		for _, o := range list {
			rows = append(rows, table.Row{stack, o.Key, o.Value, o.ExportName})
		}
	}
	fmt.Fprintln(out, t.Render("OUTPUTS", table.Row{"Stack", "Output", "Value", "Export"}, rows))
	return nil
}
