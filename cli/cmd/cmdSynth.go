package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/shutdown"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/stacks"
	flags "github.com/rglonek/go-flags"
)

type SynthCmd struct {
	Context ContextOpts    `group:"Deployment context"`
	Account string         `long:"account" description:"AWS account id used in the cluster name; looked up through STS when empty"`
	OutDir  flags.Filename `short:"o" long:"out-dir" description:"Directory to write the templates to" default:"cdk.out"`
	Format  string         `short:"f" long:"format" description:"Template format" default:"json" choice:"json" choice:"yaml"`
	Help    HelpCmd        `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *SynthCmd) Execute(args []string) error {
	cmd := []string{"synth"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	system.Logger.Info("Running %s", strings.Join(cmd, "."))
	files, err := c.Synth(system)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	for _, f := range files {
		fmt.Println(f)
	}
	system.Logger.Info("Done")
	return nil
}

// Synth writes one template file per stack and returns their paths.
func (c *SynthCmd) Synth(system *System) ([]string, error) {
	p, err := c.Context.Params()
	if err != nil {
		return nil, err
	}
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	st, err := system.synthesize(ctx, p, c.Account, nil)
	if err != nil {
		return nil, err
	}
	return writeTemplates(st, string(c.OutDir), c.Format)
}

func writeTemplates(st *stacks.Stacks, dir string, format string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	files := []string{}
	for _, s := range st.Ordered() {
		body, err := s.Template.Render(format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		name := filepath.Join(dir, s.Name+".template."+format)
		if err := os.WriteFile(name, body, 0644); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, nil
}
