package cmd

type Commands struct {
	Config       ConfigCmd       `command:"config" subcommands-optional:"true" description:"Show or change oscluster configuration"`
	Synth        SynthCmd        `command:"synth" subcommands-optional:"true" description:"Write the network and infra CloudFormation templates"`
	RenderConfig RenderConfigCmd `command:"render-config" subcommands-optional:"true" description:"Print the engine configuration file of one node role"`
	Steps        StepsCmd        `command:"steps" subcommands-optional:"true" description:"Print the provisioning steps of one node role"`
	Deploy       DeployCmd       `command:"deploy" subcommands-optional:"true" description:"Create or update the cluster stacks"`
	Destroy      DestroyCmd      `command:"destroy" subcommands-optional:"true" description:"Delete the cluster stacks"`
	List         ListCmd         `command:"list" subcommands-optional:"true" description:"List cluster stacks"`
	Status       StatusCmd       `command:"status" subcommands-optional:"true" description:"Show health and nodes of a running cluster"`
	CheckUrls    CheckUrlsCmd    `command:"check-urls" subcommands-optional:"true" description:"Check that the distribution and dashboards urls can be downloaded"`
	Version      VersionCmd      `command:"version" subcommands-optional:"true" description:"Print oscluster version"`
	Help         HelpCmd         `command:"help" subcommands-optional:"true" description:"Print help"`
}
