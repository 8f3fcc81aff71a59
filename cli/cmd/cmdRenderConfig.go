package cmd

import (
	"fmt"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/clusterconfig"
)

type RenderConfigCmd struct {
	Family           string  `short:"F" long:"family" description:"Engine family" default:"opensearch" choice:"opensearch" choice:"elasticsearch"`
	Version          string  `short:"v" long:"version" description:"Engine version, e.g. 2.11.0 or 6.8.23" default:"2.11.0"`
	ClusterName      string  `short:"n" long:"cluster-name" description:"Cluster name" default:"opensearch"`
	StackName        string  `short:"S" long:"stack-name" description:"Infra stack name used in the discovery tag filter" default:"opensearch-infra-stack"`
	ManagerCount     int     `short:"m" long:"manager-count" description:"Number of manager eligible nodes" default:"3"`
	SingleNode       bool    `long:"single-node" description:"Render a single-node configuration"`
	Role             string  `short:"r" long:"role" description:"Node role: manager, data, seedManager, seedData, client or ml"`
	AdditionalConfig string  `short:"a" long:"additional-config" description:"Text appended verbatim after the generated configuration"`
	Help             HelpCmd `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *RenderConfigCmd) Execute(args []string) error {
	cmd := []string{"render-config"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	config, err := c.Render()
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	fmt.Print(config)
	return nil
}

func (c *RenderConfigCmd) Render() (string, error) {
	family, err := clusterconfig.ParseFamily(c.Family)
	if err != nil {
		return "", err
	}
	gen, err := clusterconfig.ForEngine(family, c.Version)
	if err != nil {
		return "", err
	}
	opts := []clusterconfig.Option{clusterconfig.WithAdditionalConfig(c.AdditionalConfig)}
	if c.Role != "" {
		opts = append(opts, clusterconfig.WithRoleName(c.Role))
	}
	return gen.GetConfig(c.ClusterName, c.SingleNode, c.StackName, c.ManagerCount, opts...)
}
