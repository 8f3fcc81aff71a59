package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/clusterconfig"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deploycontext"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/provision"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/stacks"
	"gopkg.in/yaml.v3"
)

type StepsCmd struct {
	Context     ContextOpts `group:"Deployment context"`
	Role        string      `short:"r" long:"role" description:"Node role: manager, data, seedManager, seedData, client or ml; ignored for single-node clusters" default:"data"`
	ClusterName string      `short:"n" long:"cluster-name" description:"Cluster name to render; defaults to <infra stack>-<account>-<region> with placeholder account and region"`
	Output      string      `short:"o" long:"output" description:"Output format" default:"text" choice:"text" choice:"json" choice:"yaml"`
	Help        HelpCmd     `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *StepsCmd) Execute(args []string) error {
	cmd := []string{"steps"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	p, err := c.Context.Params()
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	steps, err := c.Steps(p)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	return Error(c.print(os.Stdout, steps), system, cmd, c, args)
}

// group returns the node group running the requested role.
func (c *StepsCmd) group(p *deploycontext.Params) (deploycontext.Group, error) {
	groups := p.Topology.Groups()
	if p.Topology.SingleNode {
		return groups[0], nil
	}
	role, err := clusterconfig.ParseRole(c.Role)
	if err != nil {
		return deploycontext.Group{}, err
	}
	for _, g := range groups {
		if g.Role != nil && *g.Role == role {
			return g, nil
		}
	}
	return deploycontext.Group{}, fmt.Errorf("no node group runs role %s with the given node counts", c.Role)
}

func (c *StepsCmd) Steps(p *deploycontext.Params) ([]provision.Step, error) {
	g, err := c.group(p)
	if err != nil {
		return nil, err
	}
	gen, err := clusterconfig.ForEngine(p.Family, p.Version)
	if err != nil {
		return nil, err
	}
	clusterName := c.ClusterName
	if clusterName == "" {
		clusterName = p.ClusterName("000000000000", "local")
	}
	return stacks.GroupSteps(p, gen, clusterName, g)
}

func (c *StepsCmd) print(out io.Writer, steps []provision.Step) error {
	switch c.Output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(steps)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(steps)
	}
	for n, s := range steps {
		fmt.Fprintf(out, "### %03d %s", n, s.Name)
		if s.Cwd != "" {
			fmt.Fprintf(out, " (cwd %s)", s.Cwd)
		}
		fmt.Fprintf(out, "\n%s\n\n", s.Command)
	}
	return nil
}
