package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deployer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/health"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/printer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/shutdown"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/stacks"
)

type StatusCmd struct {
	URL       string          `short:"u" long:"url" description:"Cluster endpoint; looked up from the infra stack output when empty"`
	Context   ContextOpts     `group:"Deployment context"`
	Username  string          `short:"U" long:"username" description:"Basic auth user" default:"admin"`
	Password  string          `short:"P" long:"password" description:"Basic auth password" default:"admin"`
	VerifyTLS bool            `long:"verify-tls" description:"Verify the server certificate; the demo certificates are self-signed"`
	WaitFor   string          `short:"w" long:"wait-for-status" description:"Wait until the cluster reaches this status" choice:"green" choice:"yellow" choice:"red"`
	Timeout   time.Duration   `long:"timeout" description:"Maximum time to wait for --wait-for-status" default:"5m"`
	Output    printer.Options `group:"Output"`
	Help      HelpCmd         `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *StatusCmd) Execute(args []string) error {
	cmd := []string{"status"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	url := c.URL
	if url == "" {
		url, err = c.lookupURL(ctx, system)
		if err != nil {
			return Error(err, system, cmd, c, args)
		}
	}
	system.Logger.Detail("Querying %s", url)
	client, err := health.New(health.Config{
		Addresses: []string{url},
		Username:  c.Username,
		Password:  c.Password,
		Insecure:  !c.VerifyTLS,
	})
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	report, err := health.Check(ctx, client, c.WaitFor, c.Timeout)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	system.Logger.Info("%s", report.Summary())
	return Error(c.print(os.Stdout, report), system, cmd, c, args)
}

// lookupURL reads the load balancer output of the infra stack and picks the scheme
// from the context's security settings.
func (c *StatusCmd) lookupURL(ctx context.Context, system *System) (string, error) {
	dc, err := c.Context.Load()
	if err != nil {
		return "", err
	}
	_, infra := dc.StackNames()
	clients, err := system.connect(ctx)
	if err != nil {
		return "", err
	}
	dns, err := deployer.New(clients.CloudFormation, system.Logger).OutputValue(ctx, infra, stacks.LoadBalancerOutput)
	if err != nil {
		return "", errors.Join(errors.New("no --url given and the endpoint could not be looked up"), err)
	}
	return endpoint(dns, dc.SecurityEnabled()), nil
}

func endpoint(dns string, secure bool) string {
	if secure {
		return "https://" + dns
	}
	return "http://" + dns
}

func (c *StatusCmd) print(out io.Writer, report *health.Report) error {
	if c.Output.IsJSON() {
		return printer.JSON(out, c.Output.Output, report)
	}
	t, err := printer.NewTable(c.Output)
	if err != nil {
		return err
	}
	rows := []table.Row{}
	for _, n := range report.Nodes {
		manager := ""
		if n.IsManager() {
			manager = "*"
		}
		rows = append(rows, table.Row{n.Name, n.IP, n.Roles, manager, n.HeapPercent})
	}
	title := fmt.Sprintf("%s (%s %s) status=%s", report.Info.ClusterName, report.Info.Distribution, report.Info.Version, t.Status(report.Health.Status))
	fmt.Fprintln(out, t.Render(title, table.Row{"Name", "IP", "Roles", "Manager", "Heap%"}, rows))
	return nil
}
