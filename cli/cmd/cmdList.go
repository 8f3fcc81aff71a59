package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deployer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/printer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/shutdown"
)

type ListCmd struct {
	Prefix string          `long:"prefix" description:"Only list stacks whose name starts with this prefix" default:"opensearch-"`
	Output printer.Options `group:"Output"`
	Help   HelpCmd         `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *ListCmd) Execute(args []string) error {
	cmd := []string{"list"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	clients, err := system.connect(ctx)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	list, err := deployer.New(clients.CloudFormation, system.Logger).List(ctx, c.Prefix)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	return Error(c.print(os.Stdout, list), system, cmd, c, args)
}

func (c *ListCmd) print(out io.Writer, list []deployer.StackInfo) (err error) {
	if c.Output.Pager && !c.Output.IsJSON() {
		var page *printer.Pager
		page, err = printer.NewPager(out)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := page.Close(); err == nil {
				err = cerr
			}
		}()
		out = page
		c.Output.NoColor = c.Output.NoColor || !page.HasColors()
	}
	if c.Output.IsJSON() {
		return printer.JSON(out, c.Output.Output, list)
	}
	if len(c.Output.SortBy) == 0 {
		c.Output.SortBy = []string{"Name:asc"}
	}
	t, err := printer.NewTable(c.Output)
	if err != nil {
		return err
	}
	rows := []table.Row{}
	for _, s := range list {
		updated := ""
		if !s.Updated.IsZero() {
			updated = s.Updated.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{s.Name, t.Status(s.Status), s.Created.Local().Format("2006-01-02 15:04"), updated, strings.TrimSpace(s.Reason)})
	}
	fmt.Fprintln(out, t.Render("STACKS", table.Row{"Name", "Status", "Created", "Updated", "Reason"}, rows))
	return nil
}
