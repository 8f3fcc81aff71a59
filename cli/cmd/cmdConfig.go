package cmd

import (
	"fmt"
)

type ConfigCmd struct {
	Aws  ConfigAwsCmd `command:"aws" subcommands-optional:"true" description:"Show or change AWS access settings"`
	Help HelpCmd      `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *ConfigCmd) Execute(args []string) error {
	c.Help.Execute(args)
	return nil
}

type ConfigAwsCmd struct {
	Profile        string  `short:"P" long:"profile" description:"AWS shared config profile; setting this ignores the AWS_PROFILE env variable"`
	Region         string  `short:"r" long:"region" description:"AWS region to deploy to"`
	KeyID          string  `long:"access-key-id" description:"Static access key id, stored in the configuration file"`
	SecretKey      string  `long:"secret-access-key" description:"Static secret access key, stored in the configuration file"`
	TemplateBucket string  `short:"b" long:"template-bucket" description:"S3 bucket for templates too large to pass inline"`
	Save           bool    `short:"s" long:"save" description:"Write the given values to the configuration file"`
	Help           HelpCmd `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *ConfigAwsCmd) Execute(args []string) error {
	cmd := []string{"config", "aws"}
	system, err := Initialize(&Init{}, cmd, c, args...)
	if err != nil {
		return Error(err, system, cmd, c, args)
	}
	a := &system.Opts.Config.Aws
	if a.Save {
		a.Save = false
		if err := system.WriteConfigFile(); err != nil {
			return Error(fmt.Errorf("could not write configuration file: %w", err), system, cmd, c, args)
		}
		system.Logger.Info("Configuration saved")
	}
	secret := ""
	if a.SecretKey != "" {
		secret = "(set)"
	}
	fmt.Printf("profile = %s\nregion = %s\naccess-key-id = %s\nsecret-access-key = %s\ntemplate-bucket = %s\n", a.Profile, a.Region, a.KeyID, secret, a.TemplateBucket)
	return nil
}
