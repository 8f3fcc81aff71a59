package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deployer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/shutdown"
)

type DestroyCmd struct {
	Context     ContextOpts   `group:"Deployment context"`
	KeepNetwork bool          `long:"keep-network" description:"Only delete the infra stack"`
	Force       bool          `short:"f" long:"force" description:"Do not ask for confirmation"`
	Timeout     time.Duration `long:"timeout" description:"Maximum time to wait for each stack" default:"60m"`
	Help        HelpCmd       `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *DestroyCmd) Execute(args []string) error {
	cmd := []string{"destroy"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	system.Logger.Info("Running %s", strings.Join(cmd, "."))
	names, err := c.stackNames()
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	if !c.Force && !confirm(os.Stdin, os.Stdout, names) {
		return Error(errors.New("aborted"), system, cmd, c, args)
	}
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	clients, err := system.connect(ctx)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	d := deployer.New(clients.CloudFormation, system.Logger, deployer.WithWaitTimeout(c.Timeout))
	for _, name := range names {
		if err := d.Destroy(ctx, name); err != nil {
			return Error(err, system, cmd, c, args)
		}
	}
	system.Logger.Info("Done")
	return nil
}

// stackNames returns the stacks to delete, infra first since it imports from the network stack.
func (c *DestroyCmd) stackNames() ([]string, error) {
	dc, err := c.Context.Load()
	if err != nil {
		return nil, err
	}
	network, infra := dc.StackNames()
	if c.KeepNetwork {
		return []string{infra}, nil
	}
	return []string{infra, network}, nil
}

func confirm(in io.Reader, out io.Writer, names []string) bool {
	fmt.Fprintf(out, "Delete stacks %s? Type 'yes' to continue: ", strings.Join(names, ", "))
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
