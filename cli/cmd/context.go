package cmd

import (
	"context"
	"fmt"

	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deployer"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/deploycontext"
	"github.com/lewijacn/opensearch-cluster-cdk/pkg/stacks"
	flags "github.com/rglonek/go-flags"
)

// ContextOpts select the deployment parameters. Environment variables
// OSCLUSTER_<KEY> are read first, then the context file, then -c pairs.
type ContextOpts struct {
	Pairs       []string       `short:"c" long:"context" description:"Deployment parameter as key=value, can be specified multiple times"`
	ContextFile flags.Filename `long:"context-file" description:"JSON file holding named deployment contexts"`
	ContextID   string         `long:"context-id" description:"Name of the context block to use from --context-file"`
}

func (o *ContextOpts) Load() (*deploycontext.Context, error) {
	return deploycontext.Load(deploycontext.Sources{
		ContextFile: string(o.ContextFile),
		ContextID:   o.ContextID,
		Pairs:       o.Pairs,
		ParseEnv:    true,
	})
}

func (o *ContextOpts) Params() (*deploycontext.Params, error) {
	c, err := o.Load()
	if err != nil {
		return nil, err
	}
	return c.Resolve()
}

func (s *System) auth() deployer.Auth {
	a := s.Opts.Config.Aws
	return deployer.Auth{
		Profile:   a.Profile,
		Region:    a.Region,
		KeyID:     a.KeyID,
		SecretKey: a.SecretKey,
	}
}

func (s *System) connect(ctx context.Context) (*deployer.Clients, error) {
	s.Logger.Detail("Connecting to AWS")
	return deployer.Connect(ctx, s.auth())
}

// synthesize builds both stacks. AWS is only contacted when clients is nil
// and the account, the region or the subnets of an existing VPC are unknown.
func (s *System) synthesize(ctx context.Context, p *deploycontext.Params, account string, clients *deployer.Clients) (*stacks.Stacks, error) {
	region := s.Opts.Config.Aws.Region
	if clients == nil && (account == "" || region == "" || p.Network.VpcID != "") {
		var err error
		clients, err = s.connect(ctx)
		if err != nil {
			return nil, err
		}
	}
	in := stacks.Input{Params: p, Account: account, Region: region}
	if clients != nil {
		in.Region = clients.Region
		in.Subnets = clients.EC2
		if in.Account == "" {
			var err error
			in.Account, err = deployer.AccountID(ctx, clients.STS)
			if err != nil {
				return nil, err
			}
			s.Logger.Detail("Using account %s", in.Account)
		}
	}
	st, err := stacks.Synthesize(ctx, s.Logger, in)
	if err != nil {
		return nil, fmt.Errorf("could not synthesize: %w", err)
	}
	return st, nil
}
